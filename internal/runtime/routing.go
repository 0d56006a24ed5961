package runtime

import "github.com/aretw0/callflow/pkg/domain"

// route picks the destination for a handler result. An empty string keeps the
// conversation on its current node.
//
//	success            -> the named branch if declared, else Next
//	error/unavailable  -> OnError
//	error/empty        -> OnEmpty, else OnError
//	error/incomplete   -> stay
func route(def domain.ActionDef, r domain.ActionResult) string {
	if r.OK() {
		if r.Branch != "" {
			if to, ok := def.Branches[r.Branch]; ok {
				return to
			}
		}
		return def.Next
	}

	switch r.Reason {
	case domain.ReasonUnavailable:
		return def.OnError
	case domain.ReasonEmpty:
		if def.OnEmpty != "" {
			return def.OnEmpty
		}
		return def.OnError
	default:
		return ""
	}
}
