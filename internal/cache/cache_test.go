package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoyayamashita/safe-apt/internal/scan"
)

func TestLatestIndex_MatchesFindLatest(t *testing.T) {
	records := []scan.Record{
		{PackageName: "curl", ScanDate: "2025-11-18T12:00:00", File: "1.json"},
		{PackageName: "curl", ScanDate: "2025-11-19T12:00:00", File: "2.json"},
		{PackageName: "curl", ScanDate: "2025-11-19T12:00:00", File: "3.json"},
		{PackageName: "bash", ScanDate: "", File: "4.json"},
		{PackageName: "bash", ScanDate: "2025-11-01T00:00:00", File: "5.json"},
		{PackageName: "vim", ScanDate: "2025-11-19T12:00:00", File: "6.json"},
		{PackageName: "vim", ScanDate: "2025-11-19T12:00:00", File: "7.json"},
		{PackageName: "", ScanDate: "2025-11-19T12:00:00", File: "8.json"},
	}

	index := NewLatestIndex(records)
	assert.Equal(t, 3, index.Len())

	for _, name := range []string{"curl", "bash", "vim"} {
		got, ok := index.Get(name)
		require.True(t, ok, name)
		assert.Same(t, scan.FindLatest(name, records), got, name)
	}

	got, _ := index.Get("curl")
	assert.Equal(t, "2.json", got.File)
	got, _ = index.Get("vim")
	assert.Equal(t, "6.json", got.File)

	_, ok := index.Get("wget")
	assert.False(t, ok)

	_, ok = index.Get("")
	assert.False(t, ok)
}

func TestLatestIndex_Empty(t *testing.T) {
	index := NewLatestIndex(nil)
	assert.Equal(t, 0, index.Len())
	_, ok := index.Get("curl")
	assert.False(t, ok)
}
