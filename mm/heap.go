// Package mm implements the allocator core: segregated free-list
// placement, splitting, boundary-tag coalescing, and heap extension over
// an arena.Arena, expressed in terms of the block package's address
// arithmetic. It is the top layer of the four described in spec.md §2
// and is, like the arena beneath it, not safe for concurrent use.
package mm

import (
	"fmt"

	"github.com/malloclab/malloclab/arena"
	"github.com/malloclab/malloclab/block"
	"github.com/malloclab/malloclab/errno"
	"github.com/malloclab/malloclab/internal/xlog"
)

// reserveWords is (2 + 4*NumClasses): one alignment pad word, four words
// per prologue (header, two links, footer) for each of the eight size
// classes, and one epilogue header word.
const reserveWords = 2 + 4*NumClasses

// MinArenaSize is the prologue/epilogue reservation plus the one page
// Init unconditionally extends the heap by; Init always has room for both
// at this size. arena.New rounds the requested size up to whole OS pages,
// so a smaller request still succeeds when its rounded mapping holds both;
// when the mapping is too small, Init fails fast with errno.NoMemory
// instead of succeeding with a heap that has no free space (see
// DESIGN.md, "Minimum arena size"). Note this is the arena's total
// mapped size, not the size of any one mm_malloc request or extension:
// spec.md §8's scenarios quote PAGE_SIZE (4096) as the size of the
// initial free block, which is carved out of an arena of at least
// MinArenaSize bytes, not an arena of exactly 4096 bytes.
const MinArenaSize = reserveWords*block.Word + PageSize

// Heap is the allocator's top-level handle: one arena plus the eight
// sentinel-anchored free-list heads.
type Heap struct {
	a         *arena.Arena
	prologues [NumClasses]uintptr
	opts      Options
}

// Init creates an arena of size bytes and installs the prologues,
// epilogue, and one page of initial free space, with default options.
func Init(size uint64) (*Heap, error) {
	return InitOptions(size, Options{})
}

// InitOptions is Init with explicit Options.
func InitOptions(size uint64, opts Options) (*Heap, error) {
	a, err := arena.New(size)
	if err != nil {
		return nil, fmt.Errorf("mm: %w", err)
	}

	h := &Heap{a: a, opts: opts}

	base, err := a.Sbrk(int64(reserveWords * block.Word))
	if err != nil {
		a.Close()
		errno.Set(errno.Internal)
		return nil, fmt.Errorf("mm: reserve prologues and epilogue: %w", err)
	}

	for i := 0; i < NumClasses; i++ {
		headerAddr := base + block.Word + uintptr(i)*32
		payload := headerAddr + block.Word
		block.SetHeader(payload, 32, true)
		block.SetFooter(payload, 32, true)
		block.SetFPrev(payload, payload)
		block.SetFNext(payload, payload)
		h.prologues[i] = payload
	}

	epilogue := base + block.Word + uintptr(NumClasses)*32 + block.Word
	block.SetHeader(epilogue, 0, true)
	block.SetPrevFree(epilogue, false) // predecessor is the last prologue, always allocated

	if _, err := h.extendHeap(PageSize / block.Word); err != nil {
		a.Close()
		return nil, fmt.Errorf("mm: initial heap extension: %w", err)
	}

	errno.Clear()
	return h, nil
}

// Deinit releases the heap's arena. No per-block teardown is required;
// the mapping's disappearance is total.
func (h *Heap) Deinit() error {
	if h == nil {
		return nil
	}
	if err := h.a.Close(); err != nil {
		return fmt.Errorf("mm: %w", err)
	}
	errno.Clear()
	return nil
}

// extendHeap grows the arena by round-up-to-even(words) machine words,
// installs a free block over the new bytes, advances the epilogue, and
// coalesces the new block with a free physical predecessor if one
// exists. It returns the payload address of the (possibly merged) free
// block that resulted.
func (h *Heap) extendHeap(words uint64) (uintptr, error) {
	if words%2 != 0 {
		words++
	}
	size := words * block.Word

	prevBrk, err := h.a.Sbrk(int64(size))
	if err != nil {
		errno.Set(errno.NoMemory)
		return 0, fmt.Errorf("mm: extend heap by %d bytes: %w", size, err)
	}

	payload := prevBrk
	prevFree := block.PrevFree(payload) // old epilogue's header occupied this same word

	block.SetHeader(payload, size, false)
	block.SetPrevFree(payload, prevFree)
	block.SetFooter(payload, size, false)

	epilogue := h.a.Brk()
	block.SetHeader(epilogue, 0, true)
	block.SetPrevFree(epilogue, true)

	merged := h.coalesce(payload)
	xlog.Tracef("extendHeap(%d words): new block %#x (size %d), merged -> %#x", words, payload, size, merged)
	return merged, nil
}
