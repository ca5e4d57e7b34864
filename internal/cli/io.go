package cli

import (
	"fmt"
	"io"
)

type warning struct {
	issue  string
	action string
}

// IO is the output of one command. Warnings go to stderr twice: before the
// first line of stdout and again when the command finishes, so a piped
// head or tail still shows them.
type IO struct {
	out    io.Writer
	errOut io.Writer

	warnings []warning
	headDone bool
}

// NewIO returns an IO writing to out and errOut.
func NewIO(out, errOut io.Writer) *IO {
	return &IO{out: out, errOut: errOut}
}

// Warn records a problem that did not stop the command, and what to do
// about it. Any warning turns the exit code into 1.
func (o *IO) Warn(issue, action string) {
	o.warnings = append(o.warnings, warning{issue: issue, action: action})
}

// Println writes a line to stdout.
func (o *IO) Println(a ...any) {
	o.head()
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes to stdout.
func (o *IO) Printf(format string, a ...any) {
	o.head()
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// Out returns stdout for streaming encoders.
func (o *IO) Out() io.Writer {
	o.head()

	return o.out
}

// ErrPrintln writes a line to stderr.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Finish repeats the warnings after the output and returns the exit code.
func (o *IO) Finish() int {
	if len(o.warnings) == 0 {
		return 0
	}

	if o.headDone {
		o.printWarnings()
	} else {
		// Nothing was written to stdout, once is enough.
		o.head()
	}

	return 1
}

func (o *IO) head() {
	if o.headDone || len(o.warnings) == 0 {
		return
	}

	o.headDone = true
	o.printWarnings()
}

func (o *IO) printWarnings() {
	for _, w := range o.warnings {
		_, _ = fmt.Fprintf(o.errOut, "warning: %s\n  hint: %s\n", w.issue, w.action)
	}
}
