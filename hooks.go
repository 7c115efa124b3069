package bomsync

import (
	"context"
	"sync"

	"github.com/agentstation/bomsync/pkg/upload"
)

// Hook function types for run events
type (
	// StateChangedHook is called when a run moves to a new state
	StateChangedHook func(from, to upload.State)

	// PartResultHook is called when a part reaches a terminal status
	PartResultHook func(result upload.UploadResult)

	// BatchCompletedHook is called when every part of a batch is terminal
	BatchCompletedHook func(report upload.BatchReport)
)

// hooks manages event callbacks and implements upload.Progress
type hooks struct {
	mu               sync.RWMutex
	onStateChanged   []StateChangedHook
	onPartResult     []PartResultHook
	onBatchCompleted []BatchCompletedHook
}

var _ upload.Progress = (*hooks)(nil)

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnStateChanged registers a callback for state transitions
func (h *hooks) OnStateChanged(fn StateChangedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onStateChanged = append(h.onStateChanged, fn)
}

// OnPartResult registers a callback for part results
func (h *hooks) OnPartResult(fn PartResultHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onPartResult = append(h.onPartResult, fn)
}

// OnBatchCompleted registers a callback for finished batches
func (h *hooks) OnBatchCompleted(fn BatchCompletedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onBatchCompleted = append(h.onBatchCompleted, fn)
}

// StateChanged implements upload.Progress
func (h *hooks) StateChanged(_ context.Context, from, to upload.State) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onStateChanged {
		hook(from, to)
	}
}

// PartCompleted implements upload.Progress
func (h *hooks) PartCompleted(_ context.Context, result upload.UploadResult) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onPartResult {
		hook(result)
	}
}

// BatchCompleted implements upload.Progress
func (h *hooks) BatchCompleted(_ context.Context, report upload.BatchReport) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onBatchCompleted {
		hook(report)
	}
}
