package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "docflow.ini")
	require.NoError(t, os.WriteFile(filename, []byte(content), 0600))
	return filename
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeFile(t, `
[server]
listen = :9000
base = /cms/

[eventlog]
max-entries = 50
mode = fold

[documents]
attic = /trash
retention = remove

[lock]
backend = redis
redis = redis://localhost:6379/0
ttl = 10s
`))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Listen)
	assert.Equal(t, "/cms", cfg.Server.Base)
	assert.Equal(t, 50, cfg.EventLog.MaxEntries)
	assert.Equal(t, "fold", cfg.EventLog.Mode)
	assert.Equal(t, "/trash", cfg.Documents.Attic)
	assert.Equal(t, "remove", cfg.Documents.Retention)
	assert.Equal(t, "redis", cfg.Lock.Backend)
	assert.Equal(t, 10*time.Second, cfg.Lock.TTL)

	// defaults are kept
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Contains(t, cfg.Database.URL, "sqlite3:")
}

func TestLoadOptional(t *testing.T) {
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "missing.ini"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []string{
		"[eventlog]\nmode = compact",
		"[eventlog]\nmax-entries = 0",
		"[documents]\nretention = forever",
		"[documents]\nattic = /",
		"[documents]\nattic = attic",
		"[lock]\nbackend = redis",
		"[lock]\nbackend = etcd",
	}
	for _, test := range tests {
		_, err := Load(writeFile(t, test))
		assert.Error(t, err, test)
	}
}
