package mm

import (
	"fmt"
	"unsafe"

	"github.com/malloclab/malloclab/block"
	"github.com/malloclab/malloclab/errno"
	"github.com/malloclab/malloclab/internal/xlog"
)

// Malloc serves an allocation request of size bytes from the segregated
// free lists, extending the heap on a miss. It returns a nil payload (no
// error) for a zero-byte request, matching spec.md §4.4 step 1.
func (h *Heap) Malloc(size uint64) (unsafe.Pointer, error) {
	errno.Clear()

	if size == 0 {
		return nil, nil
	}

	// Reject before rounding: size+block.Word would wrap past zero for
	// size near math.MaxUint64, and a wrapped value can land back under
	// block.MaxSize, letting an astronomical request slip through the
	// post-rounding check below as a tiny block instead of failing.
	if size > block.MaxSize-block.Word {
		errno.Set(errno.InvalidArgument)
		return nil, fmt.Errorf("mm: requested size %d exceeds representable block size", size)
	}

	adjusted := adjustedSize(size)
	if adjusted > block.MaxSize {
		errno.Set(errno.InvalidArgument)
		return nil, fmt.Errorf("mm: requested size %d exceeds representable block size", size)
	}

	startClass := sizeClassOf(adjusted)
	payload, ok := h.findFit(startClass, adjusted)
	if !ok {
		extendWords := adjusted
		if extendWords < PageSize {
			extendWords = PageSize
		}
		extendWords /= block.Word

		merged, err := h.extendHeap(extendWords)
		if err != nil {
			return nil, fmt.Errorf("mm: malloc(%d): %w", size, err)
		}
		if block.Size(merged) < adjusted {
			errno.Set(errno.NoMemory)
			return nil, fmt.Errorf("mm: malloc(%d): extended heap block still too small", size)
		}
		payload = merged
	}

	h.place(payload, adjusted)
	xlog.Tracef("malloc(%d): placed at %#x (adjusted %d)", size, payload, adjusted)
	return unsafe.Pointer(payload), nil
}

// findFit walks the free lists from class start to the largest class,
// first-fit within each class, and returns the first block whose size is
// at least n.
func (h *Heap) findFit(start int, n uint64) (uintptr, bool) {
	for class := start; class < NumClasses; class++ {
		sentinel := h.prologues[class]
		for cur := block.FNext(sentinel); cur != sentinel; cur = block.FNext(cur) {
			if block.Size(cur) >= n {
				return cur, true
			}
		}
	}
	return 0, false
}

// place installs an allocated block of size n at payload, splitting off
// and freeing the remainder when it would itself be a legal block.
func (h *Heap) place(payload uintptr, n uint64) {
	fitSize := block.Size(payload)
	h.listRemove(payload)
	prevFree := block.PrevFree(payload)

	if fitSize-n >= block.MinSize {
		block.SetHeader(payload, n, true)
		block.SetPrevFree(payload, prevFree)

		remainder := payload + uintptr(n)
		remSize := fitSize - n
		block.SetHeader(remainder, remSize, false)
		block.SetPrevFree(remainder, false)
		block.SetFooter(remainder, remSize, false)

		block.SetPrevFree(block.NextPhys(remainder), true)
		h.listInsert(sizeClassOf(remSize), remainder)
	} else {
		block.SetHeader(payload, fitSize, true)
		block.SetPrevFree(payload, prevFree)
		block.SetPrevFree(block.NextPhys(payload), false)
	}
}
