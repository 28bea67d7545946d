package arena_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malloclab/malloclab/arena"
	"github.com/malloclab/malloclab/errno"
)

func TestNewRejectsZeroSize(t *testing.T) {
	a, err := arena.New(0)
	require.Error(t, err)
	require.Nil(t, a)
	assert.Equal(t, errno.InvalidArgument, errno.Get())
}

func TestNewRoundsUpToPageSize(t *testing.T) {
	a, err := arena.New(1)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, a.HeapStart(), a.Brk())
	assert.Greater(t, a.HeapEnd(), a.HeapStart())
	assert.Zero(t, (a.HeapEnd()-a.HeapStart())%4096)
}

func TestSbrkGrowsAndReportsPreviousBrk(t *testing.T) {
	a, err := arena.New(4096)
	require.NoError(t, err)
	defer a.Close()

	start := a.Brk()
	prev, err := a.Sbrk(64)
	require.NoError(t, err)
	assert.Equal(t, start, prev)
	assert.Equal(t, start+64, a.Brk())
}

func TestSbrkExactFillSucceeds(t *testing.T) {
	a, err := arena.New(4096)
	require.NoError(t, err)
	defer a.Close()

	full := int64(a.HeapEnd() - a.Brk())
	_, err = a.Sbrk(full)
	require.NoError(t, err)
	assert.Equal(t, a.HeapEnd(), a.Brk())
}

func TestSbrkPastHeapEndFails(t *testing.T) {
	a, err := arena.New(4096)
	require.NoError(t, err)
	defer a.Close()

	full := int64(a.HeapEnd() - a.Brk())
	_, err = a.Sbrk(full + 1)
	require.Error(t, err)
	assert.Equal(t, errno.NoMemory, errno.Get())
	assert.Equal(t, a.HeapStart(), a.Brk())
}

func TestSbrkBelowHeapStartFails(t *testing.T) {
	a, err := arena.New(4096)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Sbrk(-1)
	require.Error(t, err)
	assert.Equal(t, errno.InvalidArgument, errno.Get())
}

func TestCloseIsIdempotent(t *testing.T) {
	a, err := arena.New(4096)
	require.NoError(t, err)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	assert.Zero(t, a.HeapStart())
	assert.Zero(t, a.Brk())
	assert.Zero(t, a.HeapEnd())
}

func TestSbrkOnUninitializedArenaFails(t *testing.T) {
	var a arena.Arena
	_, err := a.Sbrk(8)
	require.Error(t, err)
	assert.Equal(t, errno.Internal, errno.Get())
}
