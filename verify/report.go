package verify

import (
	"fmt"
	"io"
)

// ReportFunc observes one item result during verification. Its return
// value becomes the effective status for the file level pass or fail
// decision, so a callback may ignore or escalate individual items.
type ReportFunc func(Result) Status

// Verbose returns a reporter that prints the full result line of every
// item on its own row.
func Verbose(w io.Writer) ReportFunc {
	return func(r Result) Status {
		fmt.Fprintf(w, "    %s\n", r.Message)
		return r.Status
	}
}

// Summary returns a reporter that appends one abbreviated token per item
// to a shared line. Failures are uppercase, in parenthesis for missing
// keys. Otherwise lowercase.
func Summary(w io.Writer) ReportFunc {
	return func(r Result) Status {
		name := r.Item.Token(r.Status != StatusOK)
		if r.Status == StatusNoKey {
			fmt.Fprintf(w, "(%s) ", name)
		} else {
			fmt.Fprintf(w, "%s ", name)
		}
		return r.Status
	}
}
