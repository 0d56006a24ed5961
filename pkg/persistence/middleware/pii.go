package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

// DefaultPIIPatterns match the caller's contact details as the lead flow collects them.
var DefaultPIIPatterns = []string{`^name$`, `^email$`, `^phone$`}

type piiMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewPII creates a middleware that masks collected values whose key matches a pattern, at any depth.
// Masking happens on Save only; the live conversation keeps the real values.
func NewPII(patterns []string) (Middleware, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("pii pattern %q: %w", p, err)
		}
		compiled[i] = re
	}
	return func(next ports.StateStore) ports.StateStore {
		return &piiMiddleware{next: next, patterns: compiled}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, state *domain.FlowState) error {
	masked := state.Snapshot()
	maskMap(masked.Collected, m.patterns)
	return m.next.Save(ctx, sessionID, masked)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.FlowState, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		if matches(k, patterns) {
			m[k] = Mask
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			maskMap(sub, patterns)
		}
	}
}

func matches(key string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

// Ping checks the wrapped store.
func (m *piiMiddleware) Ping(ctx context.Context) error {
	return ping(ctx, m.next)
}
