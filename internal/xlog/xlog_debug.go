//go:build malloclab_debug

package xlog

import (
	"fmt"
	"os"
)

const enabled = true

func tracef(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[malloclab] "+format+"\n", args...)
}
