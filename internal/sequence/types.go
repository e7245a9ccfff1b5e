// Package sequence defines drip sequences and the read-only catalog the
// engine looks them up in. Sequences are authored externally in a YAML file;
// this package only loads and validates them.
package sequence

import (
	"sort"
	"strings"

	"github.com/leadkit/drip/internal/lead"
)

// namePlaceholder is replaced with the lead's display name at dispatch time.
const namePlaceholder = "{{name}}"

// Step is a single day-offset + message-template pairing within a Sequence.
type Step struct {
	// DayOffset is the number of whole calendar days after the lead's last
	// status change at which this step fires. Fires on exact match only.
	DayOffset int `yaml:"day_offset" json:"day_offset"`

	// Template is the pre-authored message. It may contain the {{name}}
	// placeholder.
	Template string `yaml:"template" json:"template"`
}

// Render substitutes the lead's display name into the template.
func (s Step) Render(name string) string {
	return strings.ReplaceAll(s.Template, namePlaceholder, name)
}

// Sequence is an ordered set of Steps tied to one trigger status.
type Sequence struct {
	ID            string      `yaml:"id" json:"id"`
	TriggerStatus lead.Status `yaml:"trigger_status" json:"trigger_status"`
	Enabled       bool        `yaml:"enabled" json:"enabled"`
	Steps         []Step      `yaml:"steps" json:"steps"`
}

// StepAt returns the step whose day offset equals elapsedDays, if any.
// Duplicate offsets are rejected at load time, so at most one step matches.
func (s *Sequence) StepAt(elapsedDays int) (Step, bool) {
	for _, step := range s.Steps {
		if step.DayOffset == elapsedDays {
			return step, true
		}
	}
	return Step{}, false
}

// DefaultMilestones are the checkpoint day offsets used to detect gaps where
// no step is configured.
var DefaultMilestones = []int{5, 10, 15, 21, 30, 45, 60}

// Milestones is a sorted set of checkpoint day offsets.
type Milestones []int

// NewMilestones returns a sorted copy of days, or the default set when days
// is empty.
func NewMilestones(days []int) Milestones {
	if len(days) == 0 {
		days = DefaultMilestones
	}
	m := make(Milestones, len(days))
	copy(m, days)
	sort.Ints(m)
	return m
}

// Contains reports whether day is a checkpoint.
func (m Milestones) Contains(day int) bool {
	i := sort.SearchInts(m, day)
	return i < len(m) && m[i] == day
}
