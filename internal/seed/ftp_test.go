package seed

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestZip(t *testing.T, members map[string][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dtb.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, data := range members {
		mw, err := w.Create(name)
		require.NoError(t, err)
		_, err = mw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

func TestExtractSpreadsheet(t *testing.T) {
	zipPath := createTestZip(t, map[string][]byte{
		"DTB_2024/leia_me.txt":             []byte("readme"),
		"DTB_2024/RELATORIO_DTB_2024.xlsx": []byte("spreadsheet-bytes"),
	})

	destDir := t.TempDir()
	path, err := ExtractSpreadsheet(zipPath, destDir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(destDir, "RELATORIO_DTB_2024.xlsx"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("spreadsheet-bytes"), data)
}

func TestExtractSpreadsheet_NoSpreadsheet(t *testing.T) {
	zipPath := createTestZip(t, map[string][]byte{
		"notes.txt": []byte("nothing here"),
	})

	_, err := ExtractSpreadsheet(zipPath, t.TempDir())
	assert.Error(t, err)
}

func TestExtractSpreadsheet_BadArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.zip")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := ExtractSpreadsheet(path, t.TempDir())
	assert.Error(t, err)
}

func TestNewFTPFetcher_DefaultTimeout(t *testing.T) {
	f := NewFTPFetcher(FTPOptions{})
	assert.NotZero(t, f.opts.Timeout)
}
