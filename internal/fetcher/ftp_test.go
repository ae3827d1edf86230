package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFTPURL(t *testing.T) {
	host, path, err := parseFTPURL("ftp://files.example.com/drops/bank.csv")
	require.NoError(t, err)
	assert.Equal(t, "files.example.com:21", host)
	assert.Equal(t, "/drops/bank.csv", path)

	host, _, err = parseFTPURL("ftp://files.example.com:2121/drops/bank.csv")
	require.NoError(t, err)
	assert.Equal(t, "files.example.com:2121", host)
}

func TestParseFTPURL_Rejects(t *testing.T) {
	_, _, err := parseFTPURL("https://example.com/file.csv")
	assert.Error(t, err, "wrong scheme")

	_, _, err = parseFTPURL("ftp://example.com")
	assert.Error(t, err, "empty path")
}

func TestNewFTPFetcher_Defaults(t *testing.T) {
	f := NewFTPFetcher(FTPOptions{})
	assert.Equal(t, "anonymous", f.opts.User)
	assert.NotZero(t, f.opts.Timeout)
}
