package upload

import (
	"fmt"
	"time"

	"github.com/agentstation/bomsync/pkg/catalogs"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/parts"
	"github.com/agentstation/bomsync/pkg/reconciler"
)

// Status is the per-part upload status.
type Status string

// Part statuses.
const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// UploadResult is the outcome for one part line.
type UploadResult struct {
	PartLineID   string      `json:"part_line_id" yaml:"part_line_id"`
	OrderingCode string      `json:"ordering_code" yaml:"ordering_code"`
	Quantity     int         `json:"quantity" yaml:"quantity"`
	Status       Status      `json:"status" yaml:"status"`
	Succeeded    bool        `json:"succeeded" yaml:"succeeded"`
	Attempts     int         `json:"attempts" yaml:"attempts"`
	LastError    errors.Kind `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	Message      string      `json:"message,omitempty" yaml:"message,omitempty"`
}

// BatchReport describes one completed upload batch.
type BatchReport struct {
	Index     int `json:"index" yaml:"index"`
	Size      int `json:"size" yaml:"size"`
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed" yaml:"failed"`
}

// CatalogReport counts catalog-side work.
type CatalogReport struct {
	Matched    int `json:"matched" yaml:"matched"`
	Assigned   int `json:"assigned" yaml:"assigned"`
	Unassigned int `json:"unassigned" yaml:"unassigned"`
	Added      int `json:"added" yaml:"added"`
	Updated    int `json:"updated" yaml:"updated"`
	Failures   int `json:"failures" yaml:"failures"`
}

// Summary is the complete report of a run. It is returned for every
// terminal state, including Cancelled and Failed.
type Summary struct {
	RunID  string       `json:"run_id" yaml:"run_id"`
	State  State        `json:"state" yaml:"state"`
	Target catalogs.Bom `json:"target" yaml:"target"`

	Total        int `json:"total" yaml:"total"`
	SuccessCount int `json:"success_count" yaml:"success_count"`
	FailureCount int `json:"failure_count" yaml:"failure_count"`
	PendingCount int `json:"pending_count" yaml:"pending_count"`
	SkippedCount int `json:"skipped_count" yaml:"skipped_count"`
	Batches      int `json:"batches" yaml:"batches"`

	Results               []UploadResult      `json:"results" yaml:"results"`
	ReconciliationSummary string              `json:"reconciliation,omitempty" yaml:"reconciliation,omitempty"`
	Reconciliation        *reconciler.Outcome `json:"-" yaml:"-"`
	Catalogs              CatalogReport       `json:"catalogs" yaml:"catalogs"`
	Unsourced             []string            `json:"unsourced,omitempty" yaml:"unsourced,omitempty"`
	ExcludedSuppliers     []parts.SupplierID  `json:"excluded_suppliers,omitempty" yaml:"excluded_suppliers,omitempty"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// String renders the one-line count summary.
func (s *Summary) String() string {
	return fmt.Sprintf("%s: %d succeeded, %d failed, %d pending of %d (%d skipped)",
		s.State, s.SuccessCount, s.FailureCount, s.PendingCount, s.Total, s.SkippedCount)
}

// Duration returns how long the run took.
func (s *Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Result returns the result for a part line.
func (s *Summary) Result(partLineID string) (UploadResult, bool) {
	for _, r := range s.Results {
		if r.PartLineID == partLineID {
			return r, true
		}
	}
	return UploadResult{}, false
}

// Failures returns the failed results.
func (s *Summary) Failures() []UploadResult {
	var out []UploadResult
	for _, r := range s.Results {
		if r.Status == StatusFailed {
			out = append(out, r)
		}
	}
	return out
}

// track resets the results to the given lines, all pending.
func (s *Summary) track(lines []*parts.PartLine) {
	s.Results = make([]UploadResult, len(lines))
	for i, l := range lines {
		s.Results[i] = UploadResult{
			PartLineID:   l.ID,
			OrderingCode: l.OrderingCode,
			Quantity:     l.RequestedQuantity,
			Status:       StatusPending,
		}
	}
	s.count()
}

func (s *Summary) result(partLineID string) *UploadResult {
	for i := range s.Results {
		if s.Results[i].PartLineID == partLineID {
			return &s.Results[i]
		}
	}
	return nil
}

// count recomputes the totals from the results.
func (s *Summary) count() {
	s.Total = len(s.Results)
	s.SuccessCount, s.FailureCount, s.PendingCount = 0, 0, 0
	for _, r := range s.Results {
		switch r.Status {
		case StatusSucceeded:
			s.SuccessCount++
		case StatusFailed:
			s.FailureCount++
		default:
			s.PendingCount++
		}
	}
}
