package prompts

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/aretw0/callflow/pkg/domain"
)

const maxOutput = 64 * 1024

// Renderer renders message templates. It caches parsed templates and is safe for concurrent use.
type Renderer struct {
	persona Persona
	now     func() time.Time

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClock overrides the time source used for date lines.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		r.now = now
	}
}

// NewRenderer creates a renderer for the persona.
func NewRenderer(p Persona, opts ...Option) *Renderer {
	r := &Renderer{
		persona: p,
		now:     time.Now,
		cache:   make(map[string]*template.Template),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Persona returns the configured persona.
func (r *Renderer) Persona() Persona {
	return r.persona
}

type templateData struct {
	Bot       Persona
	Today     string
	DateLine  string
	Collected map[string]any
}

// Interpolate renders a single template string with the collected fields.
// Plain strings are returned untouched.
func (r *Renderer) Interpolate(ctx context.Context, text string, collected map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := r.parse(text)
	if err != nil {
		return "", err
	}

	if collected == nil {
		collected = map[string]any{}
	}
	now := r.now()
	data := templateData{
		Bot:       r.persona,
		Today:     r.persona.Today(now),
		DateLine:  r.persona.DateLine(now),
		Collected: collected,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	if buf.Len() > maxOutput {
		return "", fmt.Errorf("template output exceeds %d bytes", maxOutput)
	}
	return buf.String(), nil
}

// RenderMessages renders every message of a node.
func (r *Renderer) RenderMessages(ctx context.Context, msgs []domain.Message, collected map[string]any) ([]domain.Message, error) {
	out := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		content, err := r.Interpolate(ctx, m.Content, collected)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Message{Role: m.Role, Content: content})
	}
	return out, nil
}

func (r *Renderer) parse(text string) (*template.Template, error) {
	r.mu.RLock()
	tmpl, ok := r.cache[text]
	r.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	tmpl, err := template.New("message").Funcs(template.FuncMap{
		"join": strings.Join,
	}).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	r.mu.Lock()
	r.cache[text] = tmpl
	r.mu.Unlock()
	return tmpl, nil
}
