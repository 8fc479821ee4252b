package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/dop251/goja"
)

// DeferredFlusher is implemented by pages whose init scripts only run when
// explicitly flushed after a navigation.
type DeferredFlusher interface {
	FlushDeferred(ctx context.Context) error
}

// DeferredPage wraps a page whose backend cannot reliably run scripts on
// new documents. AddInitScript buffers the script instead, and the owner
// calls FlushDeferred after every navigation to evaluate the buffer in the
// freshly loaded document.
type DeferredPage struct {
	Page

	mu      sync.Mutex
	scripts []string
}

// NewDeferredPage wraps page
func NewDeferredPage(page Page) *DeferredPage {
	return &DeferredPage{Page: page}
}

// AddInitScript validates script and buffers it
func (d *DeferredPage) AddInitScript(_ context.Context, script string) error {
	if err := ValidateScript(script); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.scripts = append(d.scripts, script)
	return nil
}

// FlushDeferred evaluates every buffered script in registration order. The
// buffer is kept, so the scripts run again after the next navigation.
func (d *DeferredPage) FlushDeferred(ctx context.Context) error {
	d.mu.Lock()
	scripts := append([]string(nil), d.scripts...)
	d.mu.Unlock()

	for i, script := range scripts {
		if _, err := d.Page.Evaluate(ctx, script); err != nil {
			return fmt.Errorf("deferred script %d: %w", i, err)
		}
	}
	return nil
}

// Pending returns the number of buffered scripts
func (d *DeferredPage) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.scripts)
}

// ValidateScript checks that script parses as a JavaScript function
// expression. It never executes it.
func ValidateScript(script string) error {
	if _, err := goja.Compile("init-script", "("+script+")", true); err != nil {
		return fmt.Errorf("invalid init script: %w", err)
	}
	return nil
}

// Flush runs deferred scripts when page buffers them and does nothing otherwise
func Flush(ctx context.Context, page Page) error {
	if f, ok := page.(DeferredFlusher); ok {
		return f.FlushDeferred(ctx)
	}
	return nil
}
