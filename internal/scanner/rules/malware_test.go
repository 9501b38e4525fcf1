package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stackhaven/marketscan/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func findingTypes(findings []models.Finding) []string {
	types := make([]string, 0, len(findings))
	for _, f := range findings {
		types = append(types, f.Type)
	}
	return types
}

func TestMalwareScannerDetectsShellExec(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/handler.php": "<?php\n$out = shell_exec('ls ' . $dir);\n",
	})

	s := NewMalwareScanner()
	findings, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, models.FindingCommandInjection, f.Type)
	assert.Equal(t, models.SeverityCritical, f.Severity)
	assert.Equal(t, models.OriginRule, f.Origin)
	assert.Equal(t, "src/handler.php", f.File)
	assert.Equal(t, 2, f.Line)
	assert.Contains(t, f.Snippet, "shell_exec")
}

func TestMalwareScannerDetectsObfuscatedEval(t *testing.T) {
	root := writeTree(t, map[string]string{
		"inc/loader.php": "<?php eval(base64_decode($payload));",
	})

	s := NewMalwareScanner()
	findings, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	// Both the generic eval rule and the obfuscation rule fire
	types := findingTypes(findings)
	assert.Contains(t, types, models.FindingDynamicEval)
	assert.Contains(t, types, models.FindingObfuscation)
}

func TestMalwareScannerCleanTree(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/app.php":    "<?php echo tenant_path('reports');",
		"src/helpers.js": "export const sum = (a, b) => a + b;",
	})

	s := NewMalwareScanner()
	findings, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestMalwareScannerSkipsBinaryAndOversized(t *testing.T) {
	root := t.TempDir()

	// Binary content with an embedded signature must be skipped, not flagged
	binary := append([]byte{0x00, 0x01, 0x02}, []byte("shell_exec(")...)
	require.NoError(t, os.WriteFile(filepath.Join(root, "blob.js"), binary, 0644))

	// Oversized file is skipped by the walker
	big := make([]byte, 256)
	for i := range big {
		big[i] = 'a'
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.php"), big, 0644))

	s := NewMalwareScanner(WithMaxFileSize(128))
	findings, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestMalwareScannerSuperglobalExec(t *testing.T) {
	root := writeTree(t, map[string]string{
		"shell.php": `<?php system($_GET['cmd']);`,
	})

	s := NewMalwareScanner()
	findings, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	types := findingTypes(findings)
	assert.Contains(t, types, models.FindingMalwarePattern)
	assert.Contains(t, types, models.FindingCommandInjection)
}

func TestMalwareScannerManyFiles(t *testing.T) {
	files := make(map[string]string)
	for i := 0; i < 50; i++ {
		files[filepath.Join("src", string(rune('a'+i%26))+"file"+string(rune('0'+i%10))+".php")] = "<?php echo 'clean';"
	}
	files["src/bad.php"] = "<?php exec($cmd);"
	root := writeTree(t, files)

	s := NewMalwareScanner(WithWorkers(4))
	findings, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "src/bad.php", findings[0].File)
}
