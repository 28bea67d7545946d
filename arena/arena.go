// Package arena owns the single contiguous region of anonymous virtual
// memory the allocator operates over. It is the "arena-acquire" /
// "arena-release" collaborator spec.md treats as an external primitive:
// a thin wrapper around mmap/munmap exposing a movable brk cursor inside
// a fixed-size mapping.
//
// An Arena is not safe for concurrent use; the allocator built on top of
// it is itself explicitly single-threaded (see the mm package).
package arena

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/malloclab/malloclab/errno"
	"github.com/malloclab/malloclab/internal/xlog"
)

// Arena is a triple (heapStart, brk, heapEnd) of monotonically-ordered
// addresses backed by one private anonymous mmap mapping. The owned
// region is [heapStart, brk); the reserve is [brk, heapEnd). Before New
// and after Close, all three are the null address (reported as zero).
type Arena struct {
	mem       []byte
	heapStart uintptr
	brk       uintptr
	heapEnd   uintptr
}

// roundUp rounds n up to the next multiple of m. m must be a power of two.
func roundUp(n, m uint64) uint64 {
	return (n + m - 1) &^ (m - 1)
}

// New acquires a region of ceil(size, page size) bytes of private
// anonymous memory from the OS. It fails with errno.InvalidArgument when
// size is zero, and errno.NoMemory when the OS mapping fails.
func New(size uint64) (*Arena, error) {
	if size == 0 {
		errno.Set(errno.InvalidArgument)
		return nil, fmt.Errorf("arena: size must be nonzero")
	}

	pageSize := uint64(unix.Getpagesize())
	rounded := roundUp(size, pageSize)

	mem, err := unix.Mmap(-1, 0, int(rounded),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		errno.Set(errno.NoMemory)
		return nil, fmt.Errorf("arena: mmap %d bytes: %w", rounded, err)
	}

	base := uintptr(unsafe.Pointer(&mem[0]))
	a := &Arena{
		mem:       mem,
		heapStart: base,
		brk:       base,
		heapEnd:   base + uintptr(rounded),
	}
	xlog.Tracef("arena.New: mapped %d bytes at %#x..%#x", rounded, a.heapStart, a.heapEnd)
	return a, nil
}

// Close returns the mapping to the OS and zeros the three boundary
// pointers. It is idempotent: calling Close on an already-closed (or
// zero-value) Arena succeeds without action.
func (a *Arena) Close() error {
	if a == nil || a.mem == nil {
		return nil
	}
	if a.heapStart > a.heapEnd {
		errno.Set(errno.Corruption)
		return fmt.Errorf("arena: heap_start %#x exceeds heap_end %#x", a.heapStart, a.heapEnd)
	}
	if err := unix.Munmap(a.mem); err != nil {
		errno.Set(errno.Internal)
		return fmt.Errorf("arena: munmap: %w", err)
	}
	a.mem = nil
	a.heapStart = 0
	a.brk = 0
	a.heapEnd = 0
	return nil
}

// Sbrk adjusts brk by the signed delta (in bytes) and returns the brk
// value from before the adjustment. On failure brk is left unchanged.
//
// It fails with errno.Internal if the arena is uninitialized,
// errno.InvalidArgument if the new brk would fall below heapStart, and
// errno.NoMemory if the new brk would exceed heapEnd. An exact fill
// (new brk == heapEnd) is accepted: see DESIGN.md for the rationale
// pinning this reading of the spec's open question.
func (a *Arena) Sbrk(delta int64) (uintptr, error) {
	if a == nil || a.mem == nil {
		errno.Set(errno.Internal)
		return 0, fmt.Errorf("arena: sbrk on uninitialized arena")
	}

	prev := a.brk
	var next uintptr
	if delta >= 0 {
		next = prev + uintptr(delta)
	} else {
		shrink := uintptr(-delta)
		if shrink > prev-a.heapStart {
			errno.Set(errno.InvalidArgument)
			return 0, fmt.Errorf("arena: sbrk(%d) would move brk below heap_start", delta)
		}
		next = prev - shrink
	}

	if next < a.heapStart {
		errno.Set(errno.InvalidArgument)
		return 0, fmt.Errorf("arena: sbrk(%d) would move brk below heap_start", delta)
	}
	if next > a.heapEnd {
		errno.Set(errno.NoMemory)
		return 0, fmt.Errorf("arena: sbrk(%d) exceeds heap_end", delta)
	}

	a.brk = next
	xlog.Tracef("arena.Sbrk(%d): brk %#x -> %#x", delta, prev, next)
	return prev, nil
}

// HeapStart returns the low boundary of the owned region.
func (a *Arena) HeapStart() uintptr {
	if a == nil {
		return 0
	}
	return a.heapStart
}

// Brk returns the current high-water mark of the used portion of the arena.
func (a *Arena) Brk() uintptr {
	if a == nil {
		return 0
	}
	return a.brk
}

// HeapEnd returns the high boundary of the reserved mapping.
func (a *Arena) HeapEnd() uintptr {
	if a == nil {
		return 0
	}
	return a.heapEnd
}
