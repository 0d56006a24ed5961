package runtime

import (
	"context"
	"time"

	"github.com/aretw0/callflow/pkg/domain"
)

func (d *Dispatcher) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: d.now(), Type: t, SessionID: d.sessionID}
}

func (d *Dispatcher) emitNodeEnter(ctx context.Context, node string) {
	if d.hooks.OnNodeEnter != nil {
		d.hooks.OnNodeEnter(ctx, &domain.NodeEvent{EventBase: d.base(domain.EventNodeEnter), NodeID: node})
	}
}

func (d *Dispatcher) emitNodeLeave(ctx context.Context, node string) {
	if d.hooks.OnNodeLeave != nil {
		d.hooks.OnNodeLeave(ctx, &domain.NodeEvent{EventBase: d.base(domain.EventNodeLeave), NodeID: node})
	}
}

func (d *Dispatcher) emitEnd(ctx context.Context, node string) {
	if d.hooks.OnEnd != nil {
		d.hooks.OnEnd(ctx, &domain.NodeEvent{EventBase: d.base(domain.EventConversationEnd), NodeID: node})
	}
}

func (d *Dispatcher) emitActionCall(ctx context.Context, node, action string, params map[string]any) {
	if d.hooks.OnActionCall != nil {
		d.hooks.OnActionCall(ctx, &domain.ActionEvent{
			EventBase: d.base(domain.EventActionCall),
			NodeID:    node,
			Action:    action,
			Params:    domain.CloneMap(params),
		})
	}
}

func (d *Dispatcher) emitActionReturn(ctx context.Context, node, action string, result domain.ActionResult, took time.Duration) {
	if d.hooks.OnActionReturn != nil {
		d.hooks.OnActionReturn(ctx, &domain.ActionEvent{
			EventBase: d.base(domain.EventActionReturn),
			NodeID:    node,
			Action:    action,
			Result:    &result,
			Duration:  took,
		})
	}
}

func (d *Dispatcher) emitActionRejected(ctx context.Context, node, action string, params map[string]any) {
	if d.hooks.OnActionRejected != nil {
		d.hooks.OnActionRejected(ctx, &domain.ActionEvent{
			EventBase: d.base(domain.EventActionRejected),
			NodeID:    node,
			Action:    action,
			Params:    domain.CloneMap(params),
		})
	}
}
