package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexedStore_FollowsDirectory(t *testing.T) {
	dir := t.TempDir()
	source, err := NewDirStore(dir, &recordingLogger{})
	require.NoError(t, err)
	store := NewIndexedStore(source, openTestBolt(t))

	writeRecord(t, dir, "curl_1.json", Record{PackageName: "curl", RawStatus: "approved", ScanDate: "2025-11-18T12:00:00"})
	require.NoError(t, store.Refresh())

	latest, err := store.Latest("curl")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, StatusApproved, latest.Status())

	// a rescan written after the first refresh wins
	writeRecord(t, dir, "curl_2.json", Record{PackageName: "curl", RawStatus: "blocked", ScanDate: "2025-11-19T12:00:00"})
	require.NoError(t, store.Refresh())

	latest, err = store.Latest("curl")
	require.NoError(t, err)
	assert.Equal(t, "curl_2.json", latest.File)
	assert.Equal(t, StatusBlocked, latest.Status())

	// deleted scan files leave the index
	require.NoError(t, os.Remove(filepath.Join(dir, "curl_1.json")))
	require.NoError(t, os.Remove(filepath.Join(dir, "curl_2.json")))
	records, err := store.Records()
	require.NoError(t, err)
	assert.Empty(t, records)

	latest, err = store.Latest("curl")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

type brokenStore struct{}

func (brokenStore) Records() ([]Record, error) {
	return nil, os.ErrPermission
}

func TestIndexedStore_SourceFailure(t *testing.T) {
	store := NewIndexedStore(brokenStore{}, openTestBolt(t))
	assert.ErrorIs(t, store.Refresh(), os.ErrPermission)

	_, err := store.Records()
	assert.Error(t, err)
}
