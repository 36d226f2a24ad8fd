package services

import (
	"context"
	"log/slog"
	"time"
)

// Reconciler drives the periodic status-check pass. The admin endpoint can
// trigger the same pass on demand through RunOnce.
type Reconciler struct {
	svc      *RequestService
	interval time.Duration
}

func NewReconciler(svc *RequestService, interval time.Duration) *Reconciler {
	return &Reconciler{svc: svc, interval: interval}
}

func (r *Reconciler) RunOnce(ctx context.Context) (StatusCheckResult, error) {
	return r.svc.RunStatusCheck(ctx)
}

// Start blocks until ctx is cancelled, running a status-check pass on each
// tick. A pass runs immediately at startup so restarts converge quickly.
func (r *Reconciler) Start(ctx context.Context) {
	if r.interval <= 0 {
		slog.Info("Background reconciliation disabled")
		return
	}

	slog.Info("Starting reconciliation loop", "interval", r.interval)

	if _, err := r.svc.RunStatusCheck(ctx); err != nil {
		slog.Error("Initial status check failed", "error", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.svc.RunStatusCheck(ctx); err != nil {
				slog.Error("Scheduled status check failed", "error", err)
			}
		}
	}
}
