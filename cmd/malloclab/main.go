// Command malloclab drives an mm.Heap from a trace script or an
// interactive REPL, in the shape of the teacher's own command-line
// front end: flags for the common cases, a file or stdin for batch
// input, and a REPL fallback when neither is given.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"unsafe"

	"github.com/xyproto/env/v2"

	"github.com/malloclab/malloclab/internal/trace"
	"github.com/malloclab/malloclab/mm"
)

const defaultArenaSize = 1 << 20

var (
	arenaSize = flag.Uint64("size", 0, "arena size in bytes (default 1MiB, or $MALLOCLAB_ARENA_SIZE)")
	traceFile = flag.String("trace", "", "trace script to run (default: read from stdin, or REPL if stdin is a terminal)")
	verbose   = flag.Bool("v", false, "print each alloc/free as it executes")
	hardened  = flag.Bool("hardened", false, "enable pointer-plausibility and double-free checks in Free")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "malloclab - segregated free-list allocator driver\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [trace-file]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -trace scenarios/basic.trace\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s program.trace\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s              # REPL\n", os.Args[0])
	}
	flag.Parse()

	size := *arenaSize
	if size == 0 {
		size = uint64(env.Int("MALLOCLAB_ARENA_SIZE", defaultArenaSize))
	}

	h, err := mm.InitOptions(size, mm.Options{Hardened: *hardened})
	if err != nil {
		fmt.Fprintf(os.Stderr, "malloclab: init: %v\n", err)
		os.Exit(1)
	}
	defer h.Deinit()

	var input string
	switch {
	case *traceFile != "":
		data, err := os.ReadFile(*traceFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "malloclab: reading %s: %v\n", *traceFile, err)
			os.Exit(1)
		}
		input = string(data)
	case flag.NArg() > 0:
		data, err := os.ReadFile(flag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "malloclab: reading %s: %v\n", flag.Arg(0), err)
			os.Exit(1)
		}
		input = string(data)
	default:
		if fi, err := os.Stdin.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
			runREPL(h)
			return
		}
		data, _ := io.ReadAll(os.Stdin)
		input = string(data)
	}

	if strings.TrimSpace(input) == "" {
		runREPL(h)
		return
	}

	if err := runScript(h, input); err != nil {
		fmt.Fprintf(os.Stderr, "malloclab: %v\n", err)
		os.Exit(1)
	}
	printStats(h)
}

func runScript(h *mm.Heap, input string) error {
	ops, err := trace.ParseString(input)
	if err != nil {
		return err
	}

	var onAlloc func(string, uint64, unsafe.Pointer)
	var onFree func(string)
	if *verbose {
		onAlloc = func(name string, size uint64, p unsafe.Pointer) {
			fmt.Printf("alloc %s %d -> %p\n", name, size, p)
		}
		onFree = func(name string) {
			fmt.Printf("free %s\n", name)
		}
	}

	r := trace.NewRunner(h, onAlloc, onFree)
	return r.Run(ops)
}

func printStats(h *mm.Heap) {
	s := h.Stats()
	fmt.Printf("allocated: %d bytes, free: %d bytes, largest free: %d bytes\n",
		s.AllocatedBytes, s.FreeBytes, s.LargestFree)
}

func runREPL(h *mm.Heap) {
	fmt.Println("malloclab REPL - type a trace line, 'stats' for a summary, 'quit' to exit")
	fmt.Println()

	r := trace.NewRunner(h, func(name string, size uint64, p unsafe.Pointer) {
		if *verbose {
			fmt.Printf("alloc %s %d -> %p\n", name, size, p)
		}
	}, func(name string) {
		if *verbose {
			fmt.Printf("freed %s\n", name)
		}
	})

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("malloclab> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch line {
		case "quit", "exit":
			fmt.Println("bye")
			return
		case "stats":
			printStats(h)
			continue
		case "help":
			fmt.Println("  alloc <name> <size>")
			fmt.Println("  free <name>")
			fmt.Println("  expect-fail alloc <size>")
			fmt.Println("  stats, quit, help")
			continue
		}

		ops, err := trace.ParseString(line)
		if err != nil {
			fmt.Printf("parse error: %v\n", err)
			continue
		}
		if err := r.Run(ops); err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		fmt.Println("ok")
	}
}
