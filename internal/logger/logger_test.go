package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoyayamashita/safe-apt/internal/pkgkey"
	"github.com/tomoyayamashita/safe-apt/internal/policy"
	"github.com/tomoyayamashita/safe-apt/internal/scan"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"DEBUG":   LevelDebug,
		"INFO":    LevelInfo,
		"warn":    LevelWarn,
		"WARNING": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, LevelWarn)

	log.Debug("d", "debug message", nil)
	log.Info("i", "info message", nil)
	log.Warn("w", "warn message", map[string]interface{}{"key": "curl_8.0_amd64"})
	log.Error("e", "error message", nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "w", lines[0]["event"])
	assert.Equal(t, "warn message", lines[0]["message"])
	assert.Equal(t, map[string]interface{}{"key": "curl_8.0_amd64"}, lines[0]["data"])
	assert.NotEmpty(t, lines[0]["ts"])

	assert.Equal(t, "error", lines[1]["level"])
	assert.NotContains(t, lines[1], "data")
}

func TestLogger_LogDecision(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, LevelDebug)

	id := pkgkey.Parse("vulnerable-pkg_1.0.0_amd64")
	rec := &scan.Record{
		PackageName: "vulnerable-pkg",
		RawStatus:   "blocked",
		ScanDate:    "2025-11-19T12:00:00",
		CVECount:    1,
		CVSSMax:     8.5,
		File:        "vulnerable-pkg.json",
	}
	log.LogDecision("run-1", id, policy.Result{Decision: policy.DecisionBlocked, Reason: "blocked"}, rec)
	log.LogDecision("run-1", pkgkey.Parse("ghost"), policy.Result{Decision: policy.DecisionMissing, Reason: "No scan found"}, nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "package_decision", lines[0]["event"])
	data := lines[0]["data"].(map[string]interface{})
	assert.Equal(t, "run-1", data["run_id"])
	assert.Equal(t, "vulnerable-pkg", data["name"])
	assert.Equal(t, "1.0.0", data["version"])
	assert.Equal(t, "amd64", data["arch"])
	assert.Equal(t, "blocked", data["decision"])
	assert.Equal(t, "blocked", data["status"])
	assert.Equal(t, 8.5, data["cvss_max"])
	assert.Equal(t, "vulnerable-pkg.json", data["scan_file"])

	missing := lines[1]["data"].(map[string]interface{})
	assert.Equal(t, "missing", missing["decision"])
	assert.NotContains(t, missing, "status")
}

func TestLogger_DecisionsHiddenAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, LevelInfo)
	log.LogDecision("run-1", pkgkey.Parse("curl"), policy.Result{Decision: policy.DecisionApproved}, nil)
	assert.Empty(t, buf.String())
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Error("e", "dropped", nil)
	log.LogDecision("run", pkgkey.Parse("curl"), policy.Result{}, nil)
}
