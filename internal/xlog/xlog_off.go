//go:build !malloclab_debug

package xlog

const enabled = false

func tracef(format string, args ...any) {}
