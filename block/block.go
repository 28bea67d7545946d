// Package block implements the pure address-arithmetic primitives the
// allocator core is built from: reading and writing the header/footer
// metadata word, stepping to a block's physical neighbors, and stepping
// along a free block's list links. Every function here operates on a
// payload address (a uintptr inside an arena's mapping) and is a
// zero-cost pointer-arithmetic operation — none of them allocate,
// validate against the arena's bounds, or touch the error channel.
// Callers must pass addresses of blocks inside a live arena.
package block

import "unsafe"

// Word is the machine-word size in bytes that every header, footer, and
// free-list link occupies.
const Word = 8

// MinSize is the smallest legal block size: header, two link words, and
// footer.
const MinSize = 32

// Align is the payload alignment granularity in bytes; every block size
// is a multiple of Align.
const Align = 16

const (
	allocatedBit = uint64(1) << 63
	prevFreeBit  = uint64(1) << 62
	sizeMask     = (uint64(1) << 60) - 1
	lowBitsMask  = ^uint64(Align - 1)
)

// MaxSize is the largest block size the 60-bit size field can represent,
// rounded down to the alignment granularity.
const MaxSize = ((uint64(1) << 60) - 1) &^ uint64(Align-1)

// pack encodes size and the allocated flag into one metadata word. size's
// low 4 bits are cleared even though the block-size invariant already
// guarantees they are zero, matching spec.md's note that the encoding
// should clear them defensively on every write.
func pack(size uint64, allocated bool) uint64 {
	w := (size & sizeMask) & lowBitsMask
	if allocated {
		w |= allocatedBit
	}
	return w
}

func unpackSize(word uint64) uint64 {
	return word & sizeMask & lowBitsMask
}

func unpackAllocated(word uint64) bool {
	return word&allocatedBit != 0
}

func loadWord(addr uintptr) uint64 {
	return *(*uint64)(unsafe.Pointer(addr))
}

func storeWord(addr uintptr, w uint64) {
	*(*uint64)(unsafe.Pointer(addr)) = w
}

// HeaderAddr returns the address of the header word for the block whose
// payload begins at p.
func HeaderAddr(p uintptr) uintptr { return p - Word }

// Size reads the block-size field (in bytes, header and optional footer
// and padding included) from the header of the block whose payload is p.
func Size(p uintptr) uint64 {
	return unpackSize(loadWord(HeaderAddr(p)))
}

// Allocated reads the allocated flag from the header of the block whose
// payload is p.
func Allocated(p uintptr) bool {
	return unpackAllocated(loadWord(HeaderAddr(p)))
}

// FooterAddr returns the address of the footer word for the block whose
// payload begins at p, valid only when that block's footer is
// semantically maintained (free blocks and prologue sentinels).
func FooterAddr(p uintptr) uintptr {
	return p + uintptr(Size(p)) - 2*Word
}

// SetHeader writes size and allocated into the header word of the block
// whose payload is p.
func SetHeader(p uintptr, size uint64, allocated bool) {
	storeWord(HeaderAddr(p), pack(size, allocated))
}

// SetFooter writes size and allocated into the footer word of the block
// whose payload is p. size is passed explicitly (rather than read back
// from the header) so callers can write a footer before or independently
// of the header during block construction.
func SetFooter(p uintptr, size uint64, allocated bool) {
	storeWord(p+uintptr(size)-2*Word, pack(size, allocated))
}

// NextPhys returns the payload address of the block physically
// following the block whose payload is p.
func NextPhys(p uintptr) uintptr {
	return p + uintptr(Size(p))
}

// PrevPhys returns the payload address of the block physically
// preceding the block whose payload is p, by reading the size field out
// of the word immediately before p (the predecessor's footer). Valid
// only when the physical predecessor is free (so its footer is valid) or
// is a prologue sentinel (whose footer is always maintained).
func PrevPhys(p uintptr) uintptr {
	prevSize := unpackSize(loadWord(p - 2*Word))
	return p - uintptr(prevSize)
}

// FPrev returns the free-list "previous" link stored in the payload of
// the free block at p.
func FPrev(p uintptr) uintptr {
	return uintptr(loadWord(p))
}

// FNext returns the free-list "next" link stored in the payload of the
// free block at p.
func FNext(p uintptr) uintptr {
	return uintptr(loadWord(p + Word))
}

// SetFPrev writes the free-list "previous" link in the payload of the
// free block at p.
func SetFPrev(p uintptr, link uintptr) {
	storeWord(p, uint64(link))
}

// SetFNext writes the free-list "next" link in the payload of the free
// block at p.
func SetFNext(p uintptr, link uintptr) {
	storeWord(p+Word, uint64(link))
}

// PrevFree reports whether the block physically preceding the block at p
// is free, by reading bit 62 of p's own header word.
//
// This bit is not part of the size/allocated encoding spec.md describes
// for the on-heap layout (bits 60-62 there are reserved zero); it is an
// internal bookkeeping bit the allocator core uses so that PrevPhys is
// only ever invoked when it is known to be valid, without an O(n) scan,
// the same role warawara28-tlsf-go's BlockHeader.isPreviousBlockFree
// plays in its own boundary-tag allocator. See DESIGN.md for why this
// was necessary and why it is safe: no testable invariant in spec.md
// §8 inspects bits 60-62.
func PrevFree(p uintptr) bool {
	return loadWord(HeaderAddr(p))&prevFreeBit != 0
}

// SetPrevFree writes bit 62 of p's header word, leaving the size and
// allocated fields untouched.
func SetPrevFree(p uintptr, free bool) {
	addr := HeaderAddr(p)
	w := loadWord(addr)
	if free {
		w |= prevFreeBit
	} else {
		w &^= prevFreeBit
	}
	storeWord(addr, w)
}
