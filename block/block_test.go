package block_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"

	"github.com/malloclab/malloclab/block"
)

// payloadIn returns the payload address block.Word bytes past the start
// of buf, so there is room for a header before it.
func payloadIn(buf []byte) uintptr {
	return uintptr(unsafe.Pointer(&buf[0])) + block.Word
}

func TestHeaderSizeAndAllocatedRoundTrip(t *testing.T) {
	buf := make([]byte, 256)
	p := payloadIn(buf)

	block.SetHeader(p, 64, true)
	assert.Equal(t, uint64(64), block.Size(p))
	assert.True(t, block.Allocated(p))

	block.SetHeader(p, 48, false)
	assert.Equal(t, uint64(48), block.Size(p))
	assert.False(t, block.Allocated(p))
}

func TestHeaderFooterAgreeForFreeBlock(t *testing.T) {
	buf := make([]byte, 256)
	p := payloadIn(buf)

	block.SetHeader(p, 64, false)
	block.SetFooter(p, 64, false)

	footer := block.FooterAddr(p)
	assert.Equal(t, p+64-2*block.Word, footer)
	assert.Equal(t, uint64(64), block.Size(p))
}

func TestLowBitsAreClearedOnWrite(t *testing.T) {
	buf := make([]byte, 256)
	p := payloadIn(buf)

	// A size with garbage in the low 4 bits must still read back the
	// 16-byte-aligned value.
	block.SetHeader(p, 64|0x3, true)
	assert.Equal(t, uint64(64), block.Size(p))
}

func TestNextPhysSteps(t *testing.T) {
	buf := make([]byte, 256)
	p := payloadIn(buf)

	block.SetHeader(p, 48, true)
	next := block.NextPhys(p)
	assert.Equal(t, p+48, next)
}

func TestPrevPhysReadsPredecessorFooter(t *testing.T) {
	buf := make([]byte, 256)
	p := payloadIn(buf)

	block.SetHeader(p, 48, false)
	block.SetFooter(p, 48, false)

	next := block.NextPhys(p)
	prev := block.PrevPhys(next)
	assert.Equal(t, p, prev)
}

func TestPrevFreeBitIndependentOfSizeAndAllocated(t *testing.T) {
	buf := make([]byte, 256)
	p := payloadIn(buf)

	block.SetHeader(p, 64, true)
	block.SetPrevFree(p, true)
	assert.True(t, block.PrevFree(p))
	assert.Equal(t, uint64(64), block.Size(p))
	assert.True(t, block.Allocated(p))

	block.SetPrevFree(p, false)
	assert.False(t, block.PrevFree(p))
	assert.Equal(t, uint64(64), block.Size(p))
	assert.True(t, block.Allocated(p))
}

func TestFreeListLinksRoundTrip(t *testing.T) {
	buf := make([]byte, 256)
	p := payloadIn(buf)

	block.SetFNext(p, 0x1000)
	block.SetFPrev(p, 0x2000)
	assert.Equal(t, uintptr(0x1000), block.FNext(p))
	assert.Equal(t, uintptr(0x2000), block.FPrev(p))
}
