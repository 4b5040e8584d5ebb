// Package entry finds the classes of an executable artifact that can be run
// and picks one, asking a selector when there is more than one.
package entry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/funvibe/jot/internal/vm"
)

var (
	// ErrUnknownCandidate rejects a name that was not offered. The request stays pending.
	ErrUnknownCandidate = errors.New("entry: not an offered candidate")
	// ErrRequestCompleted is returned by a second Resolve or Cancel.
	ErrRequestCompleted = errors.New("entry: request already completed")
)

// NoEntryPointError means no class of the artifact declares main.
type NoEntryPointError struct {
	Artifact string
}

func (e *NoEntryPointError) Error() string {
	if e.Artifact == "" {
		return "no class declares static void main(String[] args)"
	}
	return fmt.Sprintf("%s: no class declares static void main(String[] args)", e.Artifact)
}

// SelectionCancelledError ends a selection that was cancelled or timed out.
type SelectionCancelledError struct {
	Reason string
}

func (e *SelectionCancelledError) Error() string {
	return "entry point selection cancelled: " + e.Reason
}

// Selector is handed a pending request and must eventually call Resolve or
// Cancel on it, from any goroutine.
type Selector func(req *ResolutionRequest)

// AutoSelect resolves to the first candidate.
func AutoSelect(req *ResolutionRequest) {
	_ = req.Resolve(req.Candidates[0])
}

// ResolutionRequest is a single-shot choice among candidates.
type ResolutionRequest struct {
	Candidates []string

	mu        sync.Mutex
	completed bool
	choice    string
	reason    string
	done      chan struct{}
}

func newRequest(candidates []string) *ResolutionRequest {
	return &ResolutionRequest{
		Candidates: append([]string(nil), candidates...),
		done:       make(chan struct{}),
	}
}

// Resolve completes the request with one of the candidates.
func (r *ResolutionRequest) Resolve(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.completed {
		return ErrRequestCompleted
	}
	if !r.offered(name) {
		return fmt.Errorf("%w: %q", ErrUnknownCandidate, name)
	}
	r.completed = true
	r.choice = name
	close(r.done)
	return nil
}

// Cancel completes the request without a choice.
func (r *ResolutionRequest) Cancel(reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.completed {
		return ErrRequestCompleted
	}
	r.completed = true
	r.reason = reason
	close(r.done)
	return nil
}

// Done is closed once the request completes.
func (r *ResolutionRequest) Done() <-chan struct{} { return r.done }

func (r *ResolutionRequest) offered(name string) bool {
	for _, c := range r.Candidates {
		if c == name {
			return true
		}
	}
	return false
}

func (r *ResolutionRequest) result() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.choice == "" {
		return "", &SelectionCancelledError{Reason: r.reason}
	}
	return r.choice, nil
}

// Resolve picks the entry point. With no candidates it fails, with one it
// returns it without consulting selector, otherwise it waits for the
// selector, ctx or the timeout (zero means no timeout), whichever is first.
func Resolve(ctx context.Context, candidates []string, selector Selector, timeout time.Duration) (string, error) {
	switch len(candidates) {
	case 0:
		return "", &NoEntryPointError{}
	case 1:
		return candidates[0], nil
	}
	if selector == nil {
		selector = AutoSelect
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req := newRequest(candidates)
	go selector(req)

	select {
	case <-req.Done():
	case <-ctx.Done():
		reason := "cancelled"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = "timed out"
		}
		// A racing Resolve may win; its answer then stands.
		_ = req.Cancel(reason)
	}
	return req.result()
}

// Inspect lists the classes of an executable artifact that declare
// static void main(String[] args), in lexical order.
func Inspect(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	prog, err := vm.DeserializeProgram(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return MainClasses(prog), nil
}

// MainClasses lists the runnable classes of a program in lexical order.
func MainClasses(prog *vm.Program) []string {
	var out []string
	for _, cf := range prog.Classes {
		if _, _, ok := vm.FindMain(prog, cf.Name); ok {
			out = append(out, cf.Name)
		}
	}
	sort.Strings(out)
	return out
}
