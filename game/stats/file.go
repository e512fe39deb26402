package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileSink implements Archive using one JSON file per match
type FileSink struct {
	dir string
}

// NewFileSink creates a file-based archive, creating dir if needed
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create matches directory: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

// Record writes the summary to {dir}/{id}.json
func (fs *FileSink) Record(ctx context.Context, summary *MatchSummary) error {
	if summary == nil {
		return fmt.Errorf("summary cannot be nil")
	}
	path, err := fs.getFilePath(summary.ID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal match summary: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write match file: %w", err)
	}
	return nil
}

// Load reads one summary back
func (fs *FileSink) Load(id string) (*MatchSummary, error) {
	path, err := fs.getFilePath(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to read match file: %w", err)
	}

	var summary MatchSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match summary: %w", err)
	}
	return &summary, nil
}

// List returns every archived summary, newest first. Unreadable files are skipped.
func (fs *FileSink) List() ([]*MatchSummary, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read matches directory: %w", err)
	}

	var summaries []*MatchSummary
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		summary, err := fs.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].EndedAt.After(summaries[j].EndedAt)
	})
	return summaries, nil
}

// Delete removes one summary
func (fs *FileSink) Delete(id string) error {
	path, err := fs.getFilePath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrMatchNotFound
		}
		return fmt.Errorf("failed to remove match file: %w", err)
	}
	return nil
}

// getFilePath rejects ids that would escape the archive directory
func (fs *FileSink) getFilePath(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("invalid match id %q", id)
	}
	return filepath.Join(fs.dir, id+".json"), nil
}
