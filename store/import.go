package store

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ImportCSV inserts every row of the CSV file at source into table, creating
// the table from the header row when it does not exist. All rows go through one
// prepared statement inside one transaction; on any error the transaction is
// rolled back and nothing is kept. It returns the number of inserted rows.
func (s *Store) ImportCSV(ctx context.Context, source, table string) (int, error) {
	if err := validateTable(table); err != nil {
		return 0, err
	}

	f, err := os.Open(source)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrSourceAccess, source, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("%w: %s", ErrEmptySource, source)
	}
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	reader.FieldsPerRecord = len(header)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}

	inserted, err := insertRows(ctx, tx, reader, table, header)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		slog.Error("import failed", slog.String("table", table), slog.String("source", source), slog.Any("error", err))
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	slog.Info("import successful",
		slog.String("table", table),
		slog.String("source", source),
		slog.Int("records", inserted),
	)
	return inserted, nil
}

func insertRows(ctx context.Context, tx *sql.Tx, reader *csv.Reader, table string, header []string) (int, error) {
	columns := make([]string, len(header))
	defs := make([]string, len(header))
	for i, name := range header {
		columns[i] = quoteIdent(name)
		defs[i] = columns[i] + " TEXT"
	}

	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return 0, fmt.Errorf("create table: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(header)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(table), strings.Join(columns, ", "), placeholders)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	args := make([]any, len(header))
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return inserted, nil
		}
		if err != nil {
			return inserted, fmt.Errorf("read row %d: %w", inserted+1, err)
		}
		for i, v := range row {
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return inserted, fmt.Errorf("insert row %d: %w", inserted+1, err)
		}
		inserted++
	}
}

// Count returns the number of rows in table.
func (s *Store) Count(ctx context.Context, table string) (int, error) {
	if err := validateTable(table); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
