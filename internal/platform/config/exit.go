package config

import (
	"fmt"
	"io"
	"os"
)

// Hooks replaced in tests.
var (
	stderr io.Writer = os.Stderr
	exit             = os.Exit
)

// Exitf reports a fatal command error on stderr and exits with status 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(stderr, format+"\n", args...)
	exit(1)
}
