package bundle

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_NewBundle_CreatesDirAndMetadata(t *testing.T) {
	root := t.TempDir()
	mgr := NewManager(root)

	b, err := mgr.NewBundle()
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.DirExists(t, b.Root)

	data, err := os.ReadFile(filepath.Join(b.Root, "metadata.json"))
	require.NoError(t, err)

	var meta Metadata
	require.NoError(t, json.Unmarshal(data, &meta))
	assert.Equal(t, b.ID, meta.BundleID)
	assert.NotEmpty(t, meta.CreatedAt)
}

func TestBundle_AgentDir_CreatesSubdir(t *testing.T) {
	root := t.TempDir()
	mgr := NewManager(root)
	b, err := mgr.NewBundle()
	require.NoError(t, err)

	dir, err := b.AgentDir("buoy")
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, filepath.Join(b.Root, "buoy"), dir)
}

func TestBundle_RecordAgentStatus_PersistsToMetadata(t *testing.T) {
	root := t.TempDir()
	mgr := NewManager(root)
	b, err := mgr.NewBundle()
	require.NoError(t, err)

	require.NoError(t, b.RecordAgentStatus("buoy", "ok"))
	require.NoError(t, b.RecordAgentStatus("cdip", "failed"))

	meta, err := readMetadata(b.Root)
	require.NoError(t, err)
	assert.Equal(t, "ok", meta.Agents["buoy"])
	assert.Equal(t, "failed", meta.Agents["cdip"])
}

func TestManager_List_OrdersMostRecentFirst(t *testing.T) {
	root := t.TempDir()
	mgr := NewManager(root)

	ids := make([]string, 3)
	base := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	for i := range ids {
		b, err := mgr.NewBundle()
		require.NoError(t, err)
		ids[i] = b.ID
		mtime := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, os.Chtimes(b.Root, mtime, mtime))
	}

	listed, err := mgr.List()
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, listed)
}

func TestManager_List_EmptyWhenDataRootMissing(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "does-not-exist"))
	listed, err := mgr.List()
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestManager_Retain_MovesOldestBundlesToArchive(t *testing.T) {
	root := t.TempDir()
	mgr := NewManager(root)

	var ids []string
	for i := 0; i < 5; i++ {
		b, err := mgr.NewBundle()
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}

	require.NoError(t, mgr.Retain(2))

	remaining, err := mgr.List()
	require.NoError(t, err)
	assert.Len(t, remaining, 2)

	archived, err := os.ReadDir(filepath.Join(root, archiveDirName))
	require.NoError(t, err)
	assert.Len(t, archived, 3)
}

func TestManager_Retain_NoopWhenUnderLimit(t *testing.T) {
	root := t.TempDir()
	mgr := NewManager(root)
	_, err := mgr.NewBundle()
	require.NoError(t, err)

	require.NoError(t, mgr.Retain(10))

	_, err = os.Stat(filepath.Join(root, archiveDirName))
	assert.True(t, os.IsNotExist(err))
}
