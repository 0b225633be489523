// Package util holds the stderr output helpers shared across the
// tool. Anything user facing goes through here so stdout stays
// reserved for the credential_process contract.
package util

import (
	"fmt"
	"io"
	"os"
)

var IsTraceEnabled bool

// out is where all helpers write. Swappable in tests.
var out io.Writer = os.Stderr

func Write(format string, msg ...interface{}) {
	fmt.Fprintf(out, format, msg...)
}

func Writeln(format string, msg ...interface{}) {
	fmt.Fprintln(out, fmt.Sprintf(format, msg...))
}

// Traceln writes only when --verbose enabled trace output.
func Traceln(format string, msg ...interface{}) {
	if IsTraceEnabled {
		fmt.Fprintln(out, fmt.Sprintf(format, msg...))
	}
}

func Exit(err error) {
	if err != nil {
		Writeln(err.Error())
	}
	os.Exit(1)
}
