package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/callflow/pkg/domain"
)

// Combine fans every event out to each of the given hooks, in order.
func Combine(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			for _, h := range all {
				if h.OnNodeEnter != nil {
					h.OnNodeEnter(ctx, e)
				}
			}
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			for _, h := range all {
				if h.OnNodeLeave != nil {
					h.OnNodeLeave(ctx, e)
				}
			}
		},
		OnActionCall: func(ctx context.Context, e *domain.ActionEvent) {
			for _, h := range all {
				if h.OnActionCall != nil {
					h.OnActionCall(ctx, e)
				}
			}
		},
		OnActionReturn: func(ctx context.Context, e *domain.ActionEvent) {
			for _, h := range all {
				if h.OnActionReturn != nil {
					h.OnActionReturn(ctx, e)
				}
			}
		},
		OnActionRejected: func(ctx context.Context, e *domain.ActionEvent) {
			for _, h := range all {
				if h.OnActionRejected != nil {
					h.OnActionRejected(ctx, e)
				}
			}
		},
		OnEnd: func(ctx context.Context, e *domain.NodeEvent) {
			for _, h := range all {
				if h.OnEnd != nil {
					h.OnEnd(ctx, e)
				}
			}
		},
	}
}

// LogHooks writes every lifecycle event to logger. Parameters are never logged;
// they carry caller details.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("enter node", "session_id", e.SessionID, "node_id", e.NodeID)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("leave node", "session_id", e.SessionID, "node_id", e.NodeID)
		},
		OnActionCall: func(ctx context.Context, e *domain.ActionEvent) {
			logger.Debug("action call", "session_id", e.SessionID, "node_id", e.NodeID, "action", e.Action)
		},
		OnActionReturn: func(ctx context.Context, e *domain.ActionEvent) {
			attrs := []any{"session_id", e.SessionID, "node_id", e.NodeID, "action", e.Action, "took", e.Duration}
			if e.Result != nil {
				attrs = append(attrs, "status", e.Result.Status)
				if e.Result.Reason != "" {
					attrs = append(attrs, "reason", e.Result.Reason)
				}
			}
			if e.Result != nil && e.Result.Reason == domain.ReasonUnavailable {
				logger.Warn("action unavailable", attrs...)
				return
			}
			logger.Info("action return", attrs...)
		},
		OnActionRejected: func(ctx context.Context, e *domain.ActionEvent) {
			logger.Warn("action rejected", "session_id", e.SessionID, "node_id", e.NodeID, "action", e.Action)
		},
		OnEnd: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Info("conversation ended", "session_id", e.SessionID, "node_id", e.NodeID)
		},
	}
}
