// Package parser decodes the output contract of the benchmark executable.
//
// The executable reports its measurement on the first line of stdout:
//
//	Running time: 1234ms
//
// Anything after the first line is ignored.
package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// RunningTimePrefix is the literal that must start the output.
const RunningTimePrefix = "Running time: "

const runningTimeSuffix = "ms"

// maxQuotedLine bounds how much of an offending line ParseError carries.
const maxQuotedLine = 120

// ParseError reports output that does not follow the running-time grammar.
type ParseError struct {
	Reason string
	Line   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse running time: %s (first line %q)", e.Reason, e.Line)
}

// ParseRunningTime extracts N from output whose first line is exactly
// "Running time: <N>ms", where N is one or more decimal digits.
// The line may end with "\n", "\r\n" or the end of input.
func ParseRunningTime(output string) (int64, error) {
	line, _, _ := strings.Cut(output, "\n")
	line = strings.TrimSuffix(line, "\r")

	fail := func(reason string) (int64, error) {
		quoted := line
		if len(quoted) > maxQuotedLine {
			quoted = quoted[:maxQuotedLine] + "..."
		}
		return 0, &ParseError{Reason: reason, Line: quoted}
	}

	if output == "" {
		return fail("empty output")
	}

	rest, ok := strings.CutPrefix(line, RunningTimePrefix)
	if !ok {
		return fail("missing " + strconv.Quote(RunningTimePrefix) + " prefix")
	}

	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits == 0 {
		return fail("no digits after prefix")
	}

	if rest[digits:] != runningTimeSuffix {
		return fail("expected " + strconv.Quote(runningTimeSuffix) + " after digits")
	}

	ms, err := strconv.ParseInt(rest[:digits], 10, 64)
	if err != nil {
		return fail("value out of range")
	}
	return ms, nil
}
