package session

import (
	"context"
	"fmt"
	"testing"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(nil)
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		sid := fmt.Sprintf("session-%d", i)
		_ = mgr.WithLock(ctx, sid, func(context.Context) error { return nil })
	}

	if n := len(mgr.locks); n != 0 {
		t.Errorf("Memory leak detected: %d locks remained in map after %d operations", n, count)
	}
}
