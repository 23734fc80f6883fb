package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aluiziolira/go-scrape-catalog/store"
	"github.com/urfave/cli/v2"
)

func importAction(c *cli.Context) error {
	logger, level := newLogger(os.Stdout, c.Bool("v"), c.String("log-format"))
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if c.NArg() != 1 {
		return cli.Exit("import takes exactly one CSV file argument", exitConfig)
	}
	source := c.Args().First()

	s, err := store.Open(c.String("db"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("open database: %v", err), exitFailure)
	}
	defer s.Close()

	n, err := s.ImportCSV(c.Context, source, c.String("table"))
	if err != nil {
		if errors.Is(err, store.ErrInvalidTable) {
			return cli.Exit(err.Error(), exitConfig)
		}
		return cli.Exit(fmt.Sprintf("import: %v", err), exitFailure)
	}

	total, err := s.Count(c.Context, c.String("table"))
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	fmt.Fprintf(c.App.Writer, "Migration successful: %d records processed (%d in %s).\n", n, total, c.String("table"))
	return nil
}
