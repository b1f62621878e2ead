// Package bundle implements the collection-run bundle manager (spec §3/§5,
// C2): each run produces a content-addressed directory tree, and every
// archive ingested into it is validated member-by-member before a single
// byte is written to disk.
package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Bundle is one collection run's on-disk directory:
// <data_root>/<bundle_id>/<agent>/<files> plus metadata.json.
type Bundle struct {
	ID   string
	Root string
}

// AgentDir returns (creating if necessary) the subdirectory for one
// collection agent's output files.
func (b *Bundle) AgentDir(agent string) (string, error) {
	dir := filepath.Join(b.Root, agent)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create agent dir %s: %w", agent, err)
	}
	return dir, nil
}

// Metadata is the bundle's metadata.json contents.
type Metadata struct {
	BundleID  string            `json:"bundle_id"`
	CreatedAt string            `json:"created_at"`
	Agents    map[string]string `json:"agents,omitempty"` // agent name -> status
}

// Manager creates, extracts into, and retains bundle directories rooted at
// DataRoot.
type Manager struct {
	DataRoot string
	clock    clockNow
}

type clockNow func() time.Time

// NewManager builds a Manager rooted at dataRoot.
func NewManager(dataRoot string) *Manager {
	return &Manager{DataRoot: dataRoot, clock: time.Now}
}

// NewBundle creates a new bundle directory with a UUIDv4 id and an empty
// metadata.json.
func (m *Manager) NewBundle() (*Bundle, error) {
	id := uuid.NewString()
	root := filepath.Join(m.DataRoot, id)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create bundle dir: %w", err)
	}

	meta := Metadata{
		BundleID:  id,
		CreatedAt: m.clock().UTC().Format(time.RFC3339),
		Agents:    map[string]string{},
	}
	if err := writeMetadata(root, meta); err != nil {
		return nil, err
	}

	return &Bundle{ID: id, Root: root}, nil
}

// RecordAgentStatus updates metadata.json with the given agent's outcome.
func (b *Bundle) RecordAgentStatus(agent, status string) error {
	meta, err := readMetadata(b.Root)
	if err != nil {
		return err
	}
	if meta.Agents == nil {
		meta.Agents = map[string]string{}
	}
	meta.Agents[agent] = status
	return writeMetadata(b.Root, meta)
}

func writeMetadata(root string, meta Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal bundle metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(root, "metadata.json"), data, 0o644); err != nil {
		return fmt.Errorf("write bundle metadata: %w", err)
	}
	return nil
}

func readMetadata(root string) (Metadata, error) {
	data, err := os.ReadFile(filepath.Join(root, "metadata.json"))
	if err != nil {
		return Metadata{}, fmt.Errorf("read bundle metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("unmarshal bundle metadata: %w", err)
	}
	return meta, nil
}

// List returns bundle IDs under DataRoot, most recent first (UUIDv7-style
// lexical sort is not guaranteed for UUIDv4, so this sorts by directory
// mtime instead).
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.DataRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list bundles: %w", err)
	}

	type dirInfo struct {
		name    string
		modTime time.Time
	}
	var dirs []dirInfo
	for _, e := range entries {
		if !e.IsDir() || e.Name() == archiveDirName {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, dirInfo{name: e.Name(), modTime: info.ModTime()})
	}

	sort.Slice(dirs, func(i, j int) bool { return dirs[i].modTime.After(dirs[j].modTime) })

	ids := make([]string, len(dirs))
	for i, d := range dirs {
		ids[i] = d.name
	}
	return ids, nil
}

const archiveDirName = "_archive"

// Retain keeps the keepLast most recent bundles in place and moves older
// ones under <data_root>/_archive/.
func (m *Manager) Retain(keepLast int) error {
	ids, err := m.List()
	if err != nil {
		return err
	}
	if len(ids) <= keepLast {
		return nil
	}

	archiveDir := filepath.Join(m.DataRoot, archiveDirName)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	for _, id := range ids[keepLast:] {
		src := filepath.Join(m.DataRoot, id)
		dst := filepath.Join(archiveDir, id)
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("archive bundle %s: %w", id, err)
		}
	}
	return nil
}
