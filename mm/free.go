package mm

import (
	"unsafe"

	"github.com/malloclab/malloclab/block"
	"github.com/malloclab/malloclab/errno"
	"github.com/malloclab/malloclab/internal/xlog"
)

// Free releases the block at ptr back to the appropriate free list,
// merging with zero, one, or two physically-adjacent free neighbors. A
// nil ptr is a legitimate no-op.
func (h *Heap) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	p := uintptr(ptr)

	if h.opts.Hardened {
		if p < h.a.HeapStart() || p >= h.a.Brk() || !block.Allocated(p) {
			errno.Set(errno.Corruption)
			return
		}
	}

	size := block.Size(p)
	prevFree := block.PrevFree(p)
	block.SetHeader(p, size, false)
	block.SetPrevFree(p, prevFree)
	block.SetFooter(p, size, false)

	merged := h.coalesce(p)
	xlog.Tracef("free(%#x): merged -> %#x (size %d)", p, merged, block.Size(merged))
	errno.Clear()
}

// coalesce merges the just-freed block bp with its free physical
// neighbors per the four-case table in spec.md §4.4, then inserts the
// resulting block at the head of its size class's free list. bp must
// already have its allocated bit cleared (in both header and, if
// applicable, footer) before this is called.
func (h *Heap) coalesce(bp uintptr) uintptr {
	prevFree := block.PrevFree(bp)
	next := block.NextPhys(bp)
	nextAlloc := block.Allocated(next)

	merged := bp
	switch {
	case !prevFree && nextAlloc:
		// Case A: standalone. bp's own header already reflects free.
		block.SetPrevFree(next, true)

	case !prevFree && !nextAlloc:
		// Case B: merge with successor.
		h.listRemove(next)
		newSize := block.Size(bp) + block.Size(next)
		block.SetHeader(bp, newSize, false)
		block.SetPrevFree(bp, false)
		block.SetFooter(bp, newSize, false)
		merged = bp
		block.SetPrevFree(block.NextPhys(merged), true)

	case prevFree && nextAlloc:
		// Case C: merge with predecessor.
		prev := block.PrevPhys(bp)
		prevPrevFree := block.PrevFree(prev)
		h.listRemove(prev)
		newSize := block.Size(prev) + block.Size(bp)
		block.SetHeader(prev, newSize, false)
		block.SetPrevFree(prev, prevPrevFree)
		block.SetFooter(prev, newSize, false)
		merged = prev
		block.SetPrevFree(next, true)

	default:
		// Case D: merge with both neighbors.
		prev := block.PrevPhys(bp)
		prevPrevFree := block.PrevFree(prev)
		h.listRemove(prev)
		h.listRemove(next)
		newSize := block.Size(prev) + block.Size(bp) + block.Size(next)
		block.SetHeader(prev, newSize, false)
		block.SetPrevFree(prev, prevPrevFree)
		block.SetFooter(prev, newSize, false)
		merged = prev
		block.SetPrevFree(block.NextPhys(merged), true)
	}

	h.listInsert(sizeClassOf(block.Size(merged)), merged)
	return merged
}

// listInsert inserts payload at the head of class's free list, just
// after the sentinel (LIFO insertion).
func (h *Heap) listInsert(class int, payload uintptr) {
	sentinel := h.prologues[class]
	oldFirst := block.FNext(sentinel)

	block.SetFNext(sentinel, payload)
	block.SetFPrev(payload, sentinel)
	block.SetFNext(payload, oldFirst)
	block.SetFPrev(oldFirst, payload)
}

// listRemove unlinks payload from whatever circular list it currently
// belongs to, using only its own link words (no sentinel lookup needed).
func (h *Heap) listRemove(payload uintptr) {
	prev := block.FPrev(payload)
	next := block.FNext(payload)
	block.SetFNext(prev, next)
	block.SetFPrev(next, prev)
}
