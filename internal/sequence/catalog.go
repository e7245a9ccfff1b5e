package sequence

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/leadkit/drip/internal/lead"
)

// Catalog is a read-only lookup from a lead status to its enabled drip
// sequence. At most one sequence may be authored per trigger status.
type Catalog struct {
	byStatus map[lead.Status]*Sequence
}

// catalogFile is the on-disk YAML shape.
type catalogFile struct {
	Sequences []*Sequence `yaml:"sequences"`
}

// LoadCatalog reads and validates a sequence catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sequences file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sequences file: %w", err)
	}

	return NewCatalog(file.Sequences)
}

// NewCatalog builds a catalog from authored sequences, rejecting invalid
// authoring: duplicate trigger statuses, negative day offsets, and duplicate
// day offsets within one sequence (the engine relies on exact-match lookups
// resolving to at most one step).
func NewCatalog(sequences []*Sequence) (*Catalog, error) {
	byStatus := make(map[lead.Status]*Sequence, len(sequences))

	for _, seq := range sequences {
		if seq.ID == "" {
			return nil, fmt.Errorf("sequence with trigger status %q has no id", seq.TriggerStatus)
		}
		if seq.TriggerStatus == "" {
			return nil, fmt.Errorf("sequence %q has no trigger status", seq.ID)
		}
		if _, exists := byStatus[seq.TriggerStatus]; exists {
			return nil, fmt.Errorf("duplicate sequence for status %q", seq.TriggerStatus)
		}

		seen := make(map[int]bool, len(seq.Steps))
		for _, step := range seq.Steps {
			if step.DayOffset < 0 {
				return nil, fmt.Errorf("sequence %q: negative day offset %d", seq.ID, step.DayOffset)
			}
			if step.Template == "" {
				return nil, fmt.Errorf("sequence %q: step at day %d has no template", seq.ID, step.DayOffset)
			}
			if seen[step.DayOffset] {
				return nil, fmt.Errorf("sequence %q: duplicate day offset %d", seq.ID, step.DayOffset)
			}
			seen[step.DayOffset] = true
		}

		byStatus[seq.TriggerStatus] = seq
	}

	return &Catalog{byStatus: byStatus}, nil
}

// Lookup returns the enabled sequence for a status. Disabled or missing
// sequences report false.
func (c *Catalog) Lookup(status lead.Status) (*Sequence, bool) {
	seq, ok := c.byStatus[status]
	if !ok || !seq.Enabled {
		return nil, false
	}
	return seq, true
}

// Sequences returns all authored sequences, enabled or not.
func (c *Catalog) Sequences() []*Sequence {
	out := make([]*Sequence, 0, len(c.byStatus))
	for _, seq := range c.byStatus {
		out = append(out, seq)
	}
	return out
}
