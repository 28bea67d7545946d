package trace

import (
	"fmt"
	"unsafe"

	"github.com/malloclab/malloclab/mm"
)

// Heap is the subset of *mm.Heap a Runner needs, so tests can supply a
// fake.
type Heap interface {
	Malloc(size uint64) (unsafe.Pointer, error)
	Free(ptr unsafe.Pointer)
}

var _ Heap = (*mm.Heap)(nil)

// Runner executes a parsed trace script against a Heap, tracking the
// name-to-pointer bindings alloc/free refer to.
type Runner struct {
	h       Heap
	bound   map[string]unsafe.Pointer
	onAlloc func(name string, size uint64, ptr unsafe.Pointer)
	onFree  func(name string)
}

// NewRunner constructs a Runner over h. The onAlloc and onFree callbacks
// are optional (nil is a valid no-op) and are invoked after each
// successful alloc/free, e.g. for CLI -v tracing.
func NewRunner(h Heap, onAlloc func(string, uint64, unsafe.Pointer), onFree func(string)) *Runner {
	return &Runner{h: h, bound: make(map[string]unsafe.Pointer), onAlloc: onAlloc, onFree: onFree}
}

// Run executes ops in order, stopping at the first error.
func (r *Runner) Run(ops []Op) error {
	for _, op := range ops {
		if err := r.step(op); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) step(op Op) error {
	switch op.Kind {
	case Alloc:
		p, err := r.h.Malloc(op.Size)
		if err != nil {
			return fmt.Errorf("line %d: alloc %s %d: %w", op.Line, op.Name, op.Size, err)
		}
		r.bound[op.Name] = p
		if r.onAlloc != nil {
			r.onAlloc(op.Name, op.Size, p)
		}

	case Free:
		p, ok := r.bound[op.Name]
		if !ok {
			return fmt.Errorf("line %d: free %s: no such binding", op.Line, op.Name)
		}
		r.h.Free(p)
		delete(r.bound, op.Name)
		if r.onFree != nil {
			r.onFree(op.Name)
		}

	case ExpectFailAlloc:
		p, err := r.h.Malloc(op.Size)
		if err == nil {
			return fmt.Errorf("line %d: expect-fail alloc %d: unexpectedly succeeded (payload %p)", op.Line, op.Size, p)
		}

	default:
		return fmt.Errorf("line %d: unhandled op kind %d", op.Line, op.Kind)
	}
	return nil
}
