package mm

import (
	"fmt"

	"github.com/malloclab/malloclab/block"
)

// BlockInfo describes one regular block as seen during a physical walk
// of the heap.
type BlockInfo struct {
	Payload   uintptr
	Size      uint64
	Allocated bool
}

// Stats summarizes the free and allocated blocks of the heap. It is
// read-only and not on the malloc/free hot path: computing it walks every
// regular block of the physical chain once.
type Stats struct {
	FreeBytes       uint64
	AllocatedBytes  uint64
	LargestFree     uint64
	FreeCountByClass [NumClasses]int
}

// firstRegular returns the payload address of the first regular block
// (free or allocated), physically just past the last prologue.
func (h *Heap) firstRegular() uintptr {
	last := h.prologues[NumClasses-1]
	return block.NextPhys(last)
}

// Walk visits every regular block from the low end of the heap to the
// epilogue, in physical order, calling visit once per block.
func (h *Heap) Walk(visit func(BlockInfo)) {
	for p := h.firstRegular(); ; {
		size := block.Size(p)
		if size == 0 {
			return // epilogue
		}
		visit(BlockInfo{Payload: p, Size: size, Allocated: block.Allocated(p)})
		p = block.NextPhys(p)
	}
}

// Stats computes a snapshot of free/allocated byte totals and per-class
// free counts by walking the physical block chain.
func (h *Heap) Stats() Stats {
	var s Stats
	h.Walk(func(bi BlockInfo) {
		if bi.Allocated {
			s.AllocatedBytes += bi.Size
			return
		}
		s.FreeBytes += bi.Size
		if bi.Size > s.LargestFree {
			s.LargestFree = bi.Size
		}
		s.FreeCountByClass[sizeClassOf(bi.Size)]++
	})
	return s
}

// CheckInvariants walks the heap and the free lists and verifies I1-I7
// from spec.md §8. It is intended for tests and debug tooling, not for
// use on the malloc/free hot path.
func (h *Heap) CheckInvariants() error {
	heapStart, brk := h.a.HeapStart(), h.a.Brk()

	freeByWalk := make(map[uintptr]uint64)
	prevWasFree := false
	if err := func() error {
		var walkErr error
		h.Walk(func(bi BlockInfo) {
			if walkErr != nil {
				return
			}
			if bi.Payload%block.Align != 0 { // I1
				walkErr = fmt.Errorf("block %#x not 16-byte aligned", bi.Payload)
				return
			}
			if bi.Payload < heapStart || bi.Payload+uintptr(bi.Size) > brk { // I7
				walkErr = fmt.Errorf("block %#x (size %d) escapes arena bounds", bi.Payload, bi.Size)
				return
			}
			if bi.Size%block.Align != 0 {
				walkErr = fmt.Errorf("block %#x has non-aligned size %d", bi.Payload, bi.Size)
				return
			}
			if !bi.Allocated {
				if prevWasFree { // I4
					walkErr = fmt.Errorf("two physically-adjacent free blocks at %#x", bi.Payload)
					return
				}
				fsize := block.Size(block.FooterAddr(bi.Payload) + block.Word)
				falloc := block.Allocated(block.FooterAddr(bi.Payload) + block.Word)
				if fsize != bi.Size || falloc { // I3
					walkErr = fmt.Errorf("block %#x header/footer disagree", bi.Payload)
					return
				}
				freeByWalk[bi.Payload] = bi.Size
			}
			prevWasFree = !bi.Allocated
		})
		return walkErr
	}(); err != nil {
		return err
	}

	// I6: exactly one epilogue, at brk-WORD, size 0, allocated.
	epilogue := brk
	if block.Size(epilogue) != 0 || !block.Allocated(epilogue) {
		return fmt.Errorf("epilogue missing or malformed at %#x", epilogue)
	}

	// I5: every listed free block is allocated=0 and in the right class,
	// and every free block found by the physical walk appears in exactly
	// one list.
	seenInLists := make(map[uintptr]bool)
	for class := 0; class < NumClasses; class++ {
		sentinel := h.prologues[class]
		for cur := block.FNext(sentinel); cur != sentinel; cur = block.FNext(cur) {
			if block.Allocated(cur) {
				return fmt.Errorf("allocated block %#x found in free list %d", cur, class)
			}
			if got := sizeClassOf(block.Size(cur)); got != class {
				return fmt.Errorf("block %#x of size %d listed in class %d, expected %d", cur, block.Size(cur), class, got)
			}
			if seenInLists[cur] {
				return fmt.Errorf("block %#x appears in more than one free list", cur)
			}
			seenInLists[cur] = true
		}
	}
	if len(seenInLists) != len(freeByWalk) {
		return fmt.Errorf("free list membership (%d) does not match physical free blocks (%d)", len(seenInLists), len(freeByWalk))
	}
	for p := range freeByWalk {
		if !seenInLists[p] {
			return fmt.Errorf("free block %#x missing from its size-class list", p)
		}
	}

	return nil
}
