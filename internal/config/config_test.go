package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestFromFileMissingFileUsesDefaults(t *testing.T) {
	cfg, err := FromFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, uint16(1433), cfg.Connection.Port)
	assert.Equal(t, "master", cfg.Connection.Database)
	assert.Equal(t, uint8(3), cfg.MaxRetries)
	assert.Equal(t, time.Duration(0), cfg.StatementTimeout())
}

func TestFromFile(t *testing.T) {
	path := writeConfig(t, `
timeout = 30
max_retries = 5

[connection]
host = "db.example.com"
port = 1434
database = "reports"
username = "svc"
password = "hunter2"
encrypt = "true"

[logger]
console_level = "debug"
`)

	cfg, err := FromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.StatementTimeout())
	assert.Equal(t, uint8(5), cfg.MaxRetries)
	assert.Equal(t, "debug", cfg.Logging.ConsoleLevel)

	dsn := cfg.Connection.ResolveDSN()
	assert.Contains(t, dsn, "server=db.example.com")
	assert.Contains(t, dsn, "port=1434")
	assert.Contains(t, dsn, "user id=svc")
	assert.Contains(t, dsn, "password=hunter2")
	assert.Contains(t, dsn, "database=reports")
	assert.Contains(t, dsn, "encrypt=true")
}

func TestPasswordEnvIndirection(t *testing.T) {
	t.Setenv("SQLSTREAM_TEST_PASSWORD", "secret-from-env")

	path := writeConfig(t, `
[connection]
host = "localhost"
username = "svc"
password = "${SQLSTREAM_TEST_PASSWORD}"
`)

	cfg, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-from-env", cfg.Connection.Password)
}

func TestExplicitDSNWins(t *testing.T) {
	path := writeConfig(t, `
[connection]
dsn = "server=direct;port=1433"
host = "ignored"
`)

	cfg, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "server=direct;port=1433", cfg.Connection.ResolveDSN())
}

func TestNamedInstanceReplacesPort(t *testing.T) {
	conn := ConnectionConfig{Host: "db", Instance: "SQLEXPRESS", Port: 1433}
	dsn := conn.ResolveDSN()
	assert.Contains(t, dsn, `server=db\SQLEXPRESS`)
	assert.NotContains(t, dsn, "port=")
}

func TestInvalidLogLevelRejected(t *testing.T) {
	path := writeConfig(t, `
[logger]
console_level = "loud"
`)

	_, err := FromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "console log level")
}
