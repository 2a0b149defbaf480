package question

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bank is an immutable index of questions. It is safe for concurrent reads.
type Bank struct {
	byID map[string]*Question
	all  []*Question
}

// NewBank indexes qs. Entries without an id, or repeating an earlier id, are dropped.
func NewBank(qs []Question) *Bank {
	b := &Bank{byID: make(map[string]*Question, len(qs))}
	for i := range qs {
		q := qs[i]
		if q.ID == "" {
			continue
		}
		if _, dup := b.byID[q.ID]; dup {
			continue
		}
		b.byID[q.ID] = &q
		b.all = append(b.all, &q)
	}
	return b
}

// Load reads every .json, .yaml and .yml file in dir. A file that cannot be
// read or parsed is logged and skipped; only an unreadable dir is an error.
func Load(dir string, logger *slog.Logger) (*Bank, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read question dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var qs []Question
	for _, name := range names {
		path := filepath.Join(dir, name)
		parsed, err := parseFile(path)
		if err != nil {
			logger.Error("skip question file", "file", path, "error", err)
			continue
		}
		qs = append(qs, parsed...)
	}

	b := NewBank(qs)
	if dropped := len(qs) - b.Len(); dropped > 0 {
		logger.Warn("dropped questions without id or with duplicate id", "count", dropped)
	}
	logger.Info("question bank loaded", "files", len(names), "questions", b.Len())
	return b, nil
}

func parseFile(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var qs []Question
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &qs)
	} else {
		err = yaml.Unmarshal(data, &qs)
	}
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return qs, nil
}

// Fetch returns the stored question for id, or nil.
func (b *Bank) Fetch(id string) *Question {
	return b.byID[id]
}

func (b *Bank) Len() int {
	return len(b.all)
}

// All returns the questions in load order. Callers must not modify them.
func (b *Bank) All() []*Question {
	return b.all
}
