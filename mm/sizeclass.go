package mm

import (
	"math/bits"

	"github.com/malloclab/malloclab/block"
)

// NumClasses is the number of segregated size-class free lists.
const NumClasses = 8

// PageSize is the allocator's unit of heap extension, matching the
// scenarios in spec.md §8 (4096-byte pages).
const PageSize = 4096

// classByteRanges documents the byte range each class index covers; kept
// here (rather than only in spec.md) since sizeClassOf's bit trick is
// otherwise opaque.
//
//	0: [32, 64)      4: [512, 1024)
//	1: [64, 128)     5: [1024, 2048)
//	2: [128, 256)    6: [2048, 4096)
//	3: [256, 512)    7: [4096, inf)
func sizeClassOf(n uint64) int {
	if n < 64 {
		return 0
	}
	idx := bits.Len64(n) - 1 - 5
	if idx > NumClasses-1 {
		idx = NumClasses - 1
	}
	return idx
}

// roundUp rounds n up to the next multiple of m. m must be a power of two.
func roundUp(n, m uint64) uint64 {
	return (n + m - 1) &^ (m - 1)
}

// adjustedSize computes the block size (header included) that a payload
// request of n bytes requires: the header word plus the request, rounded
// to the alignment granularity and floored at the minimum block size so
// every block, once freed, has room for its two free-list link words.
func adjustedSize(n uint64) uint64 {
	s := roundUp(n+block.Word, block.Align)
	if s < block.MinSize {
		return block.MinSize
	}
	return s
}
