package upload

import "context"

// Progress receives run events. Calls happen on the orchestrator goroutine,
// in order.
type Progress interface {
	StateChanged(ctx context.Context, from, to State)
	PartCompleted(ctx context.Context, result UploadResult)
	BatchCompleted(ctx context.Context, report BatchReport)
}

// ProgressFuncs adapts optional functions to Progress.
type ProgressFuncs struct {
	OnStateChanged   func(ctx context.Context, from, to State)
	OnPartCompleted  func(ctx context.Context, result UploadResult)
	OnBatchCompleted func(ctx context.Context, report BatchReport)
}

// StateChanged implements Progress.
func (p ProgressFuncs) StateChanged(ctx context.Context, from, to State) {
	if p.OnStateChanged != nil {
		p.OnStateChanged(ctx, from, to)
	}
}

// PartCompleted implements Progress.
func (p ProgressFuncs) PartCompleted(ctx context.Context, result UploadResult) {
	if p.OnPartCompleted != nil {
		p.OnPartCompleted(ctx, result)
	}
}

// BatchCompleted implements Progress.
func (p ProgressFuncs) BatchCompleted(ctx context.Context, report BatchReport) {
	if p.OnBatchCompleted != nil {
		p.OnBatchCompleted(ctx, report)
	}
}
