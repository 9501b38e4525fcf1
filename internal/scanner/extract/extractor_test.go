package extract

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, dir string, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, "pkg.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range entries {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

func writeTarGz(t *testing.T, dir string, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, "pkg.tar.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for name, content := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}))
		_, err = tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return path
}

func TestExtractZip(t *testing.T) {
	tmp := t.TempDir()
	archive := writeZip(t, tmp, map[string]string{
		"manifest.json":    `{"name":"demo"}`,
		"src/index.php":    "<?php echo 'hi';",
		"assets/style.css": "body {}",
	})

	e := New(tmp)
	dest, err := e.Extract(archive)
	require.NoError(t, err)
	defer os.RemoveAll(dest)

	assert.FileExists(t, filepath.Join(dest, "manifest.json"))
	assert.FileExists(t, filepath.Join(dest, "src", "index.php"))

	content, err := os.ReadFile(filepath.Join(dest, "src", "index.php"))
	require.NoError(t, err)
	assert.Equal(t, "<?php echo 'hi';", string(content))
}

func TestExtractTarGz(t *testing.T) {
	tmp := t.TempDir()
	archive := writeTarGz(t, tmp, map[string]string{
		"composer.json": `{"require":{}}`,
		"lib/util.js":   "module.exports = {};",
	})

	e := New(tmp)
	dest, err := e.Extract(archive)
	require.NoError(t, err)
	defer os.RemoveAll(dest)

	assert.FileExists(t, filepath.Join(dest, "composer.json"))
	assert.FileExists(t, filepath.Join(dest, "lib", "util.js"))
}

func TestExtractZipSlipEntryDropped(t *testing.T) {
	tmp := t.TempDir()
	workRoot := filepath.Join(tmp, "work")
	require.NoError(t, os.MkdirAll(workRoot, 0755))

	archive := writeZip(t, tmp, map[string]string{
		"../../evil.php": "<?php system($_GET['c']);",
		"safe.php":       "<?php echo 'ok';",
	})

	e := New(workRoot)
	dest, err := e.Extract(archive)
	require.NoError(t, err)
	defer os.RemoveAll(dest)

	// The traversal entry must not exist anywhere outside the work dir
	assert.NoFileExists(t, filepath.Join(tmp, "evil.php"))
	assert.NoFileExists(t, filepath.Join(workRoot, "evil.php"))

	// The scan still proceeds with the surviving entries
	assert.FileExists(t, filepath.Join(dest, "safe.php"))
}

func TestExtractAllEntriesRejected(t *testing.T) {
	tmp := t.TempDir()
	archive := writeZip(t, tmp, map[string]string{
		"../../evil.php":  "nope",
		"../../evil2.php": "nope",
	})

	e := New(tmp)
	_, err := e.Extract(archive)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExtractionFailed))
}

func TestExtractUnsupportedFormat(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "pkg.rar")
	require.NoError(t, os.WriteFile(path, []byte("not an archive"), 0644))

	e := New(tmp)
	_, err := e.Extract(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExtractionFailed))
}

func TestExtractUniqueDirectories(t *testing.T) {
	tmp := t.TempDir()
	archive := writeZip(t, tmp, map[string]string{"a.txt": "a"})

	e := New(tmp)
	dest1, err := e.Extract(archive)
	require.NoError(t, err)
	defer os.RemoveAll(dest1)

	dest2, err := e.Extract(archive)
	require.NoError(t, err)
	defer os.RemoveAll(dest2)

	assert.NotEqual(t, dest1, dest2)
}

func TestSafeJoin(t *testing.T) {
	tests := []struct {
		name    string
		entry   string
		wantErr bool
	}{
		{name: "plain file", entry: "a.txt", wantErr: false},
		{name: "nested file", entry: "dir/a.txt", wantErr: false},
		{name: "dot segments collapsing inside", entry: "dir/../a.txt", wantErr: false},
		{name: "parent escape", entry: "../a.txt", wantErr: true},
		{name: "deep parent escape", entry: "../../../../etc/passwd", wantErr: true},
		{name: "absolute path", entry: "/etc/passwd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := safeJoin("/workdir/scan-x", tt.entry)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrPathTraversal)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
