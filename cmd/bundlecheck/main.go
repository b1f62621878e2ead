// Command bundlecheck verifies a collection bundle's on-disk integrity:
// every agent metadata.json records as ok, fallback or partial has a
// non-empty directory, every recorded status is non-empty, and every
// agent directory on disk has a recorded status.
// It reports one pass/fail line per bundle and exits non-zero if any
// bundle fails.
//
// Usage:
//
//	bundlecheck -data-root ./data
//	bundlecheck -data-root ./data -bundle-id 01J...
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

func main() {
	dataRoot := flag.String("data-root", "./data", "bundle manager data root")
	bundleID := flag.String("bundle-id", "", "check a single bundle ID instead of every bundle under data-root")
	flag.Parse()

	ids, err := bundleIDs(*dataRoot, *bundleID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
	if len(ids) == 0 {
		fmt.Fprintf(os.Stderr, "no bundles found under %s\n", *dataRoot)
		os.Exit(1)
	}

	allPassed := true
	for _, id := range ids {
		p := checkBundle(filepath.Join(*dataRoot, id))
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d issues)", len(p.errors))
			allPassed = false
		}
		fmt.Printf("%-40s %s\n", id, status)
		for _, e := range p.errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	if !allPassed {
		os.Exit(1)
	}
}

func bundleIDs(dataRoot, bundleID string) ([]string, error) {
	if bundleID != "" {
		return []string{bundleID}, nil
	}
	entries, err := os.ReadDir(dataRoot)
	if err != nil {
		return nil, fmt.Errorf("read data root: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() && e.Name() != "_archive" {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

// metadata mirrors bundle.Metadata's on-disk shape without importing the
// package, since bundlecheck only needs to read the file, not mutate it
// through the manager's API.
type metadata struct {
	BundleID  string            `json:"bundle_id"`
	CreatedAt string            `json:"created_at"`
	Agents    map[string]string `json:"agents"`
}

type phase struct {
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func checkBundle(root string) *phase {
	p := &phase{}

	data, err := os.ReadFile(filepath.Join(root, "metadata.json"))
	if err != nil {
		p.errorf("read metadata.json: %v", err)
		return p
	}
	var meta metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		p.errorf("parse metadata.json: %v", err)
		return p
	}

	if meta.BundleID == "" {
		p.errorf("metadata.json missing bundle_id")
	}
	if meta.CreatedAt == "" {
		p.errorf("metadata.json missing created_at")
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		p.errorf("read bundle directory: %v", err)
		return p
	}
	onDisk := map[string]bool{}
	for _, e := range entries {
		if e.IsDir() {
			onDisk[e.Name()] = true
		}
	}

	for agent, status := range meta.Agents {
		if status == "" {
			p.errorf("agent %q has empty status", agent)
			continue
		}
		if status == "ok" || status == "fallback" || status == "partial" {
			if !onDisk[agent] {
				p.errorf("agent %q recorded status %q but has no directory", agent, status)
				continue
			}
			if empty, err := dirIsEmpty(filepath.Join(root, agent)); err != nil {
				p.errorf("agent %q: %v", agent, err)
			} else if empty {
				p.errorf("agent %q recorded status %q but its directory is empty", agent, status)
			}
		}
	}

	for agent := range onDisk {
		if _, ok := meta.Agents[agent]; !ok {
			p.errorf("agent directory %q has no recorded status in metadata.json", agent)
		}
	}

	return p
}

func dirIsEmpty(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("read agent directory: %w", err)
	}
	return len(entries) == 0, nil
}
