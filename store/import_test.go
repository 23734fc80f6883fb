package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, path, s.Path())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "extracted_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportCSV(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	source := writeSource(t, "Item Title,Price,Availability\n"+
		"A Light in the Attic,£51.77,In stock\n"+
		"\"Comma, Book\",£13.99,In stock\n")

	n, err := s.ImportCSV(ctx, source, "products")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	count, err := s.Count(ctx, "products")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	var title, price string
	err = s.db.QueryRowContext(ctx, `SELECT "Item Title", "Price" FROM products WHERE rowid = 2`).Scan(&title, &price)
	require.NoError(t, err)
	require.Equal(t, "Comma, Book", title)
	require.Equal(t, "£13.99", price)

	// A second import appends to the existing table.
	n, err = s.ImportCSV(ctx, source, "products")
	require.NoError(t, err)
	require.Equal(t, 2, n)
	count, err = s.Count(ctx, "products")
	require.NoError(t, err)
	require.Equal(t, 4, count)
}

func TestImportCSVRollsBackOnBadRow(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	good := writeSource(t, "Item Title,Price,Availability\nA,£1.00,In stock\n")
	_, err := s.ImportCSV(ctx, good, "products")
	require.NoError(t, err)

	bad := writeSource(t, "Item Title,Price,Availability\nB,£2.00,In stock\nC,£3.00\n")
	_, err = s.ImportCSV(ctx, bad, "products")
	require.Error(t, err)

	count, err := s.Count(ctx, "products")
	require.NoError(t, err)
	require.Equal(t, 1, count, "rows from the failed import must not be kept")
}

func TestImportCSVRejectsUnknownColumn(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.ImportCSV(ctx, writeSource(t, "Item Title\nA\n"), "products")
	require.NoError(t, err)

	_, err = s.ImportCSV(ctx, writeSource(t, "Item Title,Rating\nB,Three\n"), "products")
	require.Error(t, err)

	count, err := s.Count(ctx, "products")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestImportCSVErrors(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	tests := []struct {
		name    string
		source  string
		table   string
		wantErr error
	}{
		{
			name:    "invalid table",
			source:  writeSource(t, "a\n1\n"),
			table:   "products; DROP TABLE x",
			wantErr: ErrInvalidTable,
		},
		{
			name:    "table starting with digit",
			source:  writeSource(t, "a\n1\n"),
			table:   "1products",
			wantErr: ErrInvalidTable,
		},
		{
			name:    "missing source",
			source:  filepath.Join(t.TempDir(), "missing.csv"),
			table:   "products",
			wantErr: ErrSourceAccess,
		},
		{
			name:    "empty source",
			source:  writeSource(t, ""),
			table:   "products",
			wantErr: ErrEmptySource,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := s.ImportCSV(ctx, tt.source, tt.table)
			require.ErrorIs(t, err, tt.wantErr)
			require.Zero(t, n)
		})
	}
}

func TestCountMissingTable(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Count(context.Background(), "products")
	require.Error(t, err)

	_, err = s.Count(context.Background(), "bad-name")
	require.ErrorIs(t, err, ErrInvalidTable)
}

func TestQuoteIdent(t *testing.T) {
	require.Equal(t, `"Item Title"`, quoteIdent("Item Title"))
	require.Equal(t, `"a""b"`, quoteIdent(`a"b`))
}
