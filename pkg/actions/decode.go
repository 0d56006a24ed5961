package actions

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/callflow/pkg/domain"
)

// decode maps loosely typed parameters (or collected fields) onto out.
func decode(in any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("decode parameters: %w", err)
	}
	return nil
}

// unreadable re-prompts when a value arrived in a shape that could not be read.
// flags are set to true in the result data.
func unreadable(what string, flags ...string) domain.ActionResult {
	var data map[string]any
	if len(flags) > 0 {
		data = make(map[string]any, len(flags))
		for _, f := range flags {
			data[f] = true
		}
	}
	return domain.Incomplete(fmt.Sprintf("I'm sorry, I couldn't read %s. Could you say it again?", what), data)
}

func clean(s string) string {
	return strings.TrimSpace(s)
}

func missing(fields map[string]string) []string {
	var out []string
	for _, k := range sortedKeys(fields) {
		if clean(fields[k]) == "" {
			out = append(out, k)
		}
	}
	return out
}

// joinOr renders a spoken list: "a", "a or b", "a, b or c".
func joinOr(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " or " + items[len(items)-1]
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// joinAnd renders "a", "a and b", "a, b and c".
func joinAnd(items []string) string {
	if len(items) < 2 {
		return strings.Join(items, "")
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}
