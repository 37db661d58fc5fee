package config

import (
	"fmt"
	"io"
	"os"
)

// Swapped in tests; os.Exit cannot be observed in-process.
var (
	exit             = os.Exit
	stderr io.Writer = os.Stderr
)

// Exitf writes a formatted error message to stderr and exits with code 1.
// Command entry points call it once their run loop has returned an error.
func Exitf(format string, args ...any) {
	fmt.Fprintf(stderr, format+"\n", args...)
	exit(1)
}
