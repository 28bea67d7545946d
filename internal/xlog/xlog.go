// Package xlog is the allocator's debug trace logger. It is a no-op in
// ordinary builds and only prints when built with the malloclab_debug
// tag, the same Enabled-constant-plus-build-tag shape flier-goutil uses
// for its internal/debug package.
package xlog

// Enabled reports whether trace logging is compiled in.
const Enabled = enabled

// Tracef prints a formatted trace line prefixed with "[malloclab]" to
// stderr when built with malloclab_debug, and does nothing otherwise.
// Call sites in mm and arena pass format strings describing block and
// brk transitions (placement, free and merge, heap extension, sbrk) for
// offline debugging; they are
// free of cost in a normal build since the !malloclab_debug variant
// compiles to an empty function body.
func Tracef(format string, args ...any) {
	tracef(format, args...)
}
