package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const embedded = `
system:
  scans_dir: /embedded/scans
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ExplicitPath(t *testing.T) {
	path := writeConfig(t, `
system:
  scans_dir: /data/scans
  approvals_dir: /data/approvals
  logs_dir: /data/logs
publisher:
  max_scan_age_hours: 24
  index_path: /data/index.db
logging:
  level: DEBUG
`)

	cfg, err := Load(path, []byte(embedded))
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Source)
	assert.Equal(t, "/data/scans", cfg.System.ScansDir)
	assert.Equal(t, "/data/approvals", cfg.System.ApprovalsDir)
	assert.Equal(t, "/data/logs", cfg.System.LogsDir)
	assert.Equal(t, 24*time.Hour, cfg.MaxScanAge())
	assert.Equal(t, "/data/index.db", cfg.Publisher.IndexPath)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestLoad_MissingFileFallsBackToEmbedded(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), []byte(embedded))
	require.NoError(t, err)

	assert.Empty(t, cfg.Source)
	assert.Equal(t, "/embedded/scans", cfg.System.ScansDir)
	assert.Equal(t, DefaultApprovalsDir, cfg.System.ApprovalsDir)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultScansDir, cfg.System.ScansDir)
	assert.Equal(t, DefaultApprovalsDir, cfg.System.ApprovalsDir)
	assert.Equal(t, DefaultLogsDir, cfg.System.LogsDir)
	assert.Equal(t, 48*time.Hour, cfg.MaxScanAge())
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
	assert.Empty(t, cfg.Publisher.IndexPath)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "system: [unclosed")
	_, err := Load(path, []byte(embedded))
	assert.Error(t, err)

	path = writeConfig(t, "system:\n  scans_dir: [1, 2]\n")
	_, err = Load(path, []byte(embedded))
	assert.Error(t, err)
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("SAFE_APT_ROOT", "/srv/mirror")
	t.Setenv("SAFE_APT_LEVEL", "warning")

	path := writeConfig(t, `
system:
  scans_dir: ${SAFE_APT_ROOT}/scans
  approvals_dir: $SAFE_APT_ROOT/approvals
  logs_dir: ${SAFE_APT_UNSET_VAR}/logs
publisher:
  max_scan_age_hours: 12
logging:
  level: $SAFE_APT_LEVEL
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "/srv/mirror/scans", cfg.System.ScansDir)
	assert.Equal(t, "/srv/mirror/approvals", cfg.System.ApprovalsDir)
	assert.Equal(t, "/logs", cfg.System.LogsDir)
	assert.Equal(t, 12*time.Hour, cfg.MaxScanAge())
	assert.Equal(t, "warning", cfg.Logging.Level)
}

func TestLoad_NonPositiveMaxAge(t *testing.T) {
	path := writeConfig(t, "publisher:\n  max_scan_age_hours: -5\n")
	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxAgeHours, cfg.Publisher.MaxScanAgeHours)
}
