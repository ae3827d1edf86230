package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arunsoman/match-magic/internal/model"
)

func TestReadCSV(t *testing.T) {
	data := "Date,Amount,Reference\n2024-01-15,1500.00,TXN-1\n2024-01-16,-42.50,TXN-2\n"

	rows, err := ReadCSV(context.Background(), strings.NewReader(data), CSVOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, model.String("1500.00"), rows[0]["Amount"])
	assert.Equal(t, model.String("TXN-1"), rows[0]["Reference"])
	assert.Equal(t, int64(2), rows[0].Line())
	assert.Equal(t, int64(3), rows[1].Line())
}

func TestReadCSV_TrimAndDelimiter(t *testing.T) {
	data := "A;B\n x ;y\n"

	rows, err := ReadCSV(context.Background(), strings.NewReader(data), CSVOptions{Delimiter: ';', TrimSpace: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.String("x"), rows[0]["A"])
}

func TestReadCSV_ShortRecords(t *testing.T) {
	data := "A,B,C\n1,2\n"

	rows, err := ReadCSV(context.Background(), strings.NewReader(data), CSVOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, ok := rows[0]["C"]
	assert.False(t, ok, "missing trailing cell stays unset")
}

func TestReadCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadCSV(ctx, strings.NewReader("A\n1\n"), CSVOptions{})
	assert.Error(t, err)
}

func TestStreamCSV_HeaderOnly(t *testing.T) {
	rows, err := ReadCSV(context.Background(), strings.NewReader("A,B\n"), CSVOptions{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRowsFromCells(t *testing.T) {
	rows := RowsFromCells([]string{"A", "", "C"}, [][]string{{"1", "skip", "3", "extra"}}, 5)
	require.Len(t, rows, 1)

	assert.Equal(t, model.String("1"), rows[0]["A"])
	assert.Equal(t, model.String("3"), rows[0]["C"])
	assert.Equal(t, int64(5), rows[0].Line())
	assert.Len(t, rows[0], 3) // A, C, __line
}

func TestReadFile_UnsupportedExtension(t *testing.T) {
	_, err := ReadFile(context.Background(), "input.parquet")
	assert.Error(t, err)
}
