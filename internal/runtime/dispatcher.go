package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/callflow/internal/logging"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/graph"
	"github.com/aretw0/callflow/pkg/ports"
	"github.com/rs/xid"
)

// fallbackMessage is appended when a handler returns an empty message.
const fallbackMessage = "The action completed."

// Dispatcher drives one conversation through a graph.
type Dispatcher struct {
	graph       *graph.Graph
	convo       ports.ConversationContext
	renderer    Renderer
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	postActions map[domain.PostActionType]PostActionFunc
	sessionID   string
	now         func() time.Time

	mu          sync.Mutex
	state       *domain.FlowState
	initialized bool

	done    chan struct{}
	endOnce sync.Once
}

var _ ports.Conversation = (*Dispatcher)(nil)

// New creates a dispatcher positioned on the graph's initial node.
// Every message it emits is appended to convo.
func New(g *graph.Graph, convo ports.ConversationContext, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		graph:       g,
		convo:       convo,
		logger:      logging.NewNop(),
		postActions: make(map[domain.PostActionType]PostActionFunc),
		now:         time.Now,
		done:        make(chan struct{}),
	}
	d.postActions[domain.PostActionEndConversation] = endConversation

	for _, opt := range opts {
		opt(d)
	}
	if d.renderer == nil {
		d.renderer = passthrough{}
	}
	if d.sessionID == "" {
		d.sessionID = xid.New().String()
	}

	d.state = domain.NewFlowState(d.sessionID, g.InitialNode())
	return d
}

// SessionID returns the conversation identifier.
func (d *Dispatcher) SessionID() string {
	return d.sessionID
}

// Initialize enters the initial node: its role and task messages are appended
// to the conversation context and its enter post-actions fire.
func (d *Dispatcher) Initialize(ctx context.Context) ([]domain.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return nil, domain.ErrAlreadyInitialized
	}

	node, err := d.graph.Node(d.state.CurrentNode)
	if err != nil {
		return nil, err
	}
	msgs, err := d.nodeMessages(ctx, node, d.state.Collected)
	if err != nil {
		return nil, fmt.Errorf("render node %q: %w", node.ID, err)
	}

	d.initialized = true
	d.appendAll(msgs)
	d.emitNodeEnter(ctx, node.ID)
	d.firePostActions(ctx, node, domain.PhaseEnter)

	d.logger.Debug("conversation initialized", "session", d.sessionID, "node", node.ID)
	return msgs, nil
}

// Invoke executes the named action of the current node.
//
// Unknown actions are rejected with an *domain.ActionNotAvailableError and
// leave everything untouched. Otherwise the handler runs, its message is
// appended verbatim, its data is merged into the collected fields and the
// conversation moves to the destination chosen by the result.
func (d *Dispatcher) Invoke(ctx context.Context, action string, params map[string]any) (*ports.Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	current := d.state.CurrentNode
	if err := d.admit(); err != nil {
		d.emitActionRejected(ctx, current, action, params)
		return nil, err
	}

	def, handler, err := d.graph.Resolve(current, action)
	if err != nil {
		d.logger.Debug("action rejected", "session", d.sessionID, "node", current, "action", action)
		d.emitActionRejected(ctx, current, action, params)
		return nil, err
	}

	call := ports.ActionCall{
		SessionID: d.sessionID,
		Node:      current,
		Action:    action,
		Params:    domain.CloneMap(params),
		Collected: domain.CloneMap(d.state.Collected),
	}

	d.emitActionCall(ctx, current, action, params)
	start := d.now()
	result, err := handler.Execute(ctx, call)
	if err != nil {
		d.logger.Error("action failed", "session", d.sessionID, "node", current, "action", action, "error", err)
		return nil, &HandlerError{Node: current, Action: action, Err: err}
	}
	result = d.normalize(action, result)
	d.emitActionReturn(ctx, current, action, result, d.now().Sub(start))

	next := d.state.Snapshot()
	next.Forget(result.Clears...)
	next.Merge(result.Data)

	outcome := &ports.Outcome{Result: result, From: current, To: current}
	target := route(def, result)
	if target == "" {
		d.commit(next)
		d.convo.Append(domain.RoleSystem, result.Message)
		outcome.Terminated = d.state.Terminated()
		return outcome, nil
	}

	dest, err := d.graph.Node(target)
	if err != nil {
		return nil, err
	}
	msgs, err := d.nodeMessages(ctx, dest, next.Collected)
	if err != nil {
		return nil, fmt.Errorf("render node %q: %w", dest.ID, err)
	}

	source, err := d.graph.Node(current)
	if err != nil {
		return nil, err
	}

	d.commit(next)
	d.convo.Append(domain.RoleSystem, result.Message)
	d.transition(ctx, source, dest, action, msgs)

	outcome.To = dest.ID
	outcome.Transitioned = true
	outcome.Messages = msgs
	outcome.Terminated = d.state.Terminated()
	return outcome, nil
}

// CurrentNode returns the name of the node the conversation is on.
func (d *Dispatcher) CurrentNode() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.CurrentNode
}

// Catalog returns the actions callable from the current node.
// It is empty once the conversation has ended.
func (d *Dispatcher) Catalog() []domain.ActionSpec {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.Terminated() {
		return []domain.ActionSpec{}
	}
	specs, err := d.graph.Catalog(d.state.CurrentNode)
	if err != nil {
		return []domain.ActionSpec{}
	}
	return specs
}

// State returns a deep copy of the conversation state.
func (d *Dispatcher) State() *domain.FlowState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Snapshot()
}

// Done is closed when an end_conversation post-action fires.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Graph returns the graph this dispatcher runs.
func (d *Dispatcher) Graph() *graph.Graph {
	return d.graph
}

func (d *Dispatcher) admit() error {
	if !d.initialized {
		return domain.ErrNotInitialized
	}
	if d.state.Terminated() {
		return domain.ErrConversationEnded
	}
	return nil
}

func (d *Dispatcher) normalize(action string, r domain.ActionResult) domain.ActionResult {
	if r.Status == "" {
		r.Status = domain.ResultSuccess
	}
	if r.Message == "" {
		d.logger.Warn("handler returned an empty message", "session", d.sessionID, "action", action)
		r.Message = fallbackMessage
	}
	return r
}

func (d *Dispatcher) commit(next *domain.FlowState) {
	next.UpdatedAt = d.now().UTC()
	d.state = next
}

// transition moves the committed state from source to dest.
func (d *Dispatcher) transition(ctx context.Context, source, dest domain.Node, action string, msgs []domain.Message) {
	d.firePostActions(ctx, source, domain.PhaseLeave)
	d.emitNodeLeave(ctx, source.ID)

	d.state.CurrentNode = dest.ID
	d.state.History = append(d.state.History, domain.Transition{
		From:   source.ID,
		To:     dest.ID,
		Action: action,
		At:     d.now().UTC(),
	})

	d.appendAll(msgs)
	d.emitNodeEnter(ctx, dest.ID)
	d.firePostActions(ctx, dest, domain.PhaseEnter)

	d.logger.Debug("transition", "session", d.sessionID, "from", source.ID, "to", dest.ID, "action", action)
}

func (d *Dispatcher) nodeMessages(ctx context.Context, node domain.Node, collected map[string]any) ([]domain.Message, error) {
	raw := make([]domain.Message, 0, len(node.RoleMessages)+len(node.TaskMessages))
	raw = append(raw, node.RoleMessages...)
	raw = append(raw, node.TaskMessages...)
	return d.renderer.RenderMessages(ctx, raw, collected)
}

func (d *Dispatcher) appendAll(msgs []domain.Message) {
	for _, m := range msgs {
		d.convo.Append(m.Role, m.Content)
	}
}

func (d *Dispatcher) firePostActions(ctx context.Context, node domain.Node, phase domain.PostActionPhase) {
	for _, pa := range node.PostActionsFor(phase) {
		fn, ok := d.postActions[pa.Type]
		if !ok {
			d.logger.Warn("no handler for post-action", "session", d.sessionID, "node", node.ID, "type", pa.Type)
			continue
		}
		if err := fn(ctx, d, node.ID); err != nil {
			d.logger.Error("post-action failed", "session", d.sessionID, "node", node.ID, "type", pa.Type, "error", err)
		}
	}
}

// endConversation marks the conversation terminated and closes Done.
// It runs inside the critical section.
func endConversation(ctx context.Context, d *Dispatcher, node string) error {
	d.state.Status = domain.StatusTerminated
	d.endOnce.Do(func() {
		close(d.done)
		d.emitEnd(ctx, node)
		d.logger.Info("conversation ended", "session", d.sessionID, "node", node)
	})
	return nil
}

type passthrough struct{}

func (passthrough) RenderMessages(_ context.Context, msgs []domain.Message, _ map[string]any) ([]domain.Message, error) {
	return append([]domain.Message(nil), msgs...), nil
}
