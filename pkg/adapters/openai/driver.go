// Package openai drives a conversation with a chat-completion model.
//
// The current node's catalog is offered as function tools; tool calls become
// Invoke calls and their results are fed back as tool messages.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"github.com/aretw0/callflow/internal/logging"
	"github.com/aretw0/callflow/internal/runtime"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/ports"
)

const (
	DefaultModel    = openai.GPT4o
	DefaultMaxSteps = 6
)

// Completer is the part of *openai.Client the driver needs.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Transcript replays what the dispatcher injected, from a cursor.
type Transcript interface {
	Since(n int) []domain.Message
	Len() int
}

// Reply is what one caller turn produced.
type Reply struct {
	Text        string   `json:"text"`
	Node        string   `json:"node"`
	Invocations []string `json:"invocations,omitempty"`
	Terminated  bool     `json:"terminated"`
}

// Driver runs caller turns against a single conversation.
type Driver struct {
	client     Completer
	conv       ports.Conversation
	transcript Transcript

	model       string
	temperature float32
	maxSteps    int
	logger      *slog.Logger

	history []openai.ChatCompletionMessage
	cursor  int
	pending []domain.Message
}

// Option configures a Driver.
type Option func(*Driver)

// WithModel selects the chat model.
func WithModel(model string) Option {
	return func(d *Driver) {
		d.model = model
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(d *Driver) {
		d.temperature = t
	}
}

// WithMaxSteps bounds the model calls made for one caller turn.
func WithMaxSteps(n int) Option {
	return func(d *Driver) {
		d.maxSteps = n
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = l
	}
}

// NewClient builds a go-openai client, optionally pointed at a compatible endpoint.
func NewClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// NewDriver wraps an initialized conversation and the transcript it appends to.
func NewDriver(client Completer, conv ports.Conversation, transcript Transcript, opts ...Option) *Driver {
	d := &Driver{
		client:      client,
		conv:        conv,
		transcript:  transcript,
		model:       DefaultModel,
		temperature: 0.3,
		maxSteps:    DefaultMaxSteps,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Turn feeds one caller utterance to the model and runs the actions it calls.
// An empty utterance lets the model speak first.
func (d *Driver) Turn(ctx context.Context, utterance string) (*Reply, error) {
	d.sync()
	if utterance != "" {
		d.history = append(d.history, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: utterance})
	}

	reply := &Reply{}
	for step := 0; step < d.maxSteps; step++ {
		resp, err := d.client.CreateChatCompletion(ctx, d.request())
		if err != nil {
			return nil, fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("no choices returned from chat completion")
		}
		msg := resp.Choices[0].Message
		d.history = append(d.history, openai.ChatCompletionMessage{
			Role:      openai.ChatMessageRoleAssistant,
			Content:   msg.Content,
			ToolCalls: msg.ToolCalls,
		})

		if len(msg.ToolCalls) == 0 {
			reply.Text = msg.Content
			reply.Node = d.conv.CurrentNode()
			reply.Terminated = d.terminated()
			return reply, nil
		}

		for i, tc := range msg.ToolCalls {
			if err := d.runTool(ctx, tc); err != nil {
				d.abandon(msg.ToolCalls[i:])
				return nil, err
			}
			reply.Invocations = append(reply.Invocations, tc.Function.Name)
		}
		d.flush()
	}

	reply.Node = d.conv.CurrentNode()
	reply.Terminated = d.terminated()
	return reply, fmt.Errorf("no spoken reply after %d model calls", d.maxSteps)
}

// History returns the messages sent to the model so far.
func (d *Driver) History() []openai.ChatCompletionMessage {
	return append([]openai.ChatCompletionMessage(nil), d.history...)
}

func (d *Driver) runTool(ctx context.Context, tc openai.ToolCall) error {
	var params map[string]any
	if tc.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &params); err != nil {
			d.toolResult(tc.ID, "The arguments were not valid JSON. Call the action again with a JSON object.")
			return nil
		}
	}

	before := d.transcript.Len()
	_, err := d.conv.Invoke(ctx, tc.Function.Name, params)
	if err != nil {
		if !runtime.IsProtocolError(err) {
			return fmt.Errorf("invoke %s: %w", tc.Function.Name, err)
		}
		d.logger.Debug("model called an unavailable action", "action", tc.Function.Name)
		d.toolResult(tc.ID, runtime.RejectionMessage(err))
		return nil
	}

	// The first injected message is the action's result; the rest belong to the next node.
	injected := d.transcript.Since(before)
	content := "The action completed."
	if len(injected) > 0 {
		content = injected[0].Content
		d.pending = append(d.pending, injected[1:]...)
	}
	d.toolResult(tc.ID, content)
	return nil
}

// abandon answers the calls left over from a failed batch.
// Every tool call id in the history must have a result or the next request is refused.
func (d *Driver) abandon(calls []openai.ToolCall) {
	for _, tc := range calls {
		d.toolResult(tc.ID, "The action could not be completed. Apologise to the caller and try again.")
	}
	d.flush()
}

// flush appends the node messages held back until every tool result of a batch is in.
func (d *Driver) flush() {
	for _, m := range d.pending {
		d.history = append(d.history, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	d.pending = nil
	d.cursor = d.transcript.Len()
}

func (d *Driver) toolResult(id, content string) {
	d.history = append(d.history, openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		Content:    content,
		ToolCallID: id,
	})
}

// sync forwards transcript messages the model has not seen yet.
func (d *Driver) sync() {
	for _, m := range d.transcript.Since(d.cursor) {
		d.history = append(d.history, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	d.cursor = d.transcript.Len()
}

func (d *Driver) request() openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:       d.model,
		Messages:    d.history,
		Temperature: d.temperature,
	}
	for _, spec := range d.conv.Catalog() {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.Parameters,
			},
		})
	}
	return req
}

func (d *Driver) terminated() bool {
	select {
	case <-d.conv.Done():
		return true
	default:
		return false
	}
}
