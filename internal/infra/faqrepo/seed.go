package faqrepo

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yanqian/faq-rag/internal/domain/faq"
)

// SeedEntry is one FAQ row together with the index vector that points at it.
type SeedEntry struct {
	VectorID int64  `yaml:"vectorId"`
	ID       int64  `yaml:"id"`
	Category string `yaml:"category"`
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// Seed is a small FAQ corpus loaded from disk for deployments without Postgres.
type Seed struct {
	Entries []SeedEntry `yaml:"entries"`
}

// LoadSeed reads and validates a YAML seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if err := seed.validate(); err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	return &seed, nil
}

func (s *Seed) validate() error {
	if len(s.Entries) == 0 {
		return fmt.Errorf("no entries")
	}
	vectors := make(map[int64]struct{}, len(s.Entries))
	for i, e := range s.Entries {
		if strings.TrimSpace(e.Question) == "" || strings.TrimSpace(e.Answer) == "" {
			return fmt.Errorf("entry %d: question and answer are required", i)
		}
		if _, dup := vectors[e.VectorID]; dup {
			return fmt.Errorf("entry %d: duplicate vectorId %d", i, e.VectorID)
		}
		vectors[e.VectorID] = struct{}{}
	}
	return nil
}

// Records returns the FAQ rows in file order.
func (s *Seed) Records() []faq.Record {
	out := make([]faq.Record, 0, len(s.Entries))
	for _, e := range s.Entries {
		out = append(out, faq.Record{
			ID:       faq.RowID(e.ID),
			Category: e.Category,
			Question: e.Question,
			Answer:   e.Answer,
		})
	}
	return out
}

// Mappings returns the vector to row translation table.
func (s *Seed) Mappings() map[faq.VectorID]faq.RowID {
	out := make(map[faq.VectorID]faq.RowID, len(s.Entries))
	for _, e := range s.Entries {
		out[faq.VectorID(e.VectorID)] = faq.RowID(e.ID)
	}
	return out
}
