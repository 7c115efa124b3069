package reconciler

import (
	"fmt"
	"time"

	"github.com/agentstation/bomsync/pkg/parts"
	"github.com/agentstation/bomsync/pkg/policy"
)

// State is the match state of a part line against the target.
type State string

// Match states.
const (
	Unmatched                State = "unmatched"
	MatchedSameQuantity      State = "matched_same_quantity"
	MatchedDifferentQuantity State = "matched_different_quantity"
)

// Class is the final classification of a part line.
type Class string

// Classifications.
const (
	ClassNew      Class = "new"
	ClassModified Class = "modified"
	ClassSkipped  Class = "skipped"
)

// Record is the audit trail for one part line.
type Record struct {
	PartLineID        string                  `json:"part_line_id" yaml:"part_line_id"`
	PartNumber        string                  `json:"part_number" yaml:"part_number"`
	State             State                   `json:"state" yaml:"state"`
	Class             Class                   `json:"class" yaml:"class"`
	RequestedQuantity int                     `json:"requested_quantity" yaml:"requested_quantity"`
	ExistingQuantity  int                     `json:"existing_quantity,omitempty" yaml:"existing_quantity,omitempty"`
	Quantity          int                     `json:"quantity" yaml:"quantity"`
	Decision          policy.QuantityDecision `json:"-" yaml:"-"`
	// Degraded is set when a UseDelta decision fell back to Skip.
	Degraded bool `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}

// Outcome partitions the source lines. Every source line appears in exactly
// one of ToUpload or Skipped; Modified is a subset of ToUpload.
type Outcome struct {
	ToUpload []*parts.PartLine `json:"to_upload" yaml:"to_upload"`
	Skipped  []*parts.PartLine `json:"skipped" yaml:"skipped"`
	Modified []*parts.PartLine `json:"modified" yaml:"modified"`
	Records  []Record          `json:"records" yaml:"records"`
	Duration time.Duration     `json:"-" yaml:"-"`
}

// NewCount returns the number of lines uploaded unchanged.
func (o *Outcome) NewCount() int {
	return len(o.ToUpload) - len(o.Modified)
}

// Summary renders the human-readable counts.
func (o *Outcome) Summary() string {
	return fmt.Sprintf("%d new, %d modified, %d skipped", o.NewCount(), len(o.Modified), len(o.Skipped))
}

// IsModified reports whether the line with the given ID had its quantity altered.
func (o *Outcome) IsModified(id string) bool {
	for _, l := range o.Modified {
		if l.ID == id {
			return true
		}
	}
	return false
}
