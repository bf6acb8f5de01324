// Package logging carries engine diagnostics to whatever the host process
// logs with. The engine only sees Sink; cmd wires it to zerolog.
package logging

import (
	"strings"

	"github.com/rs/zerolog"
)

// Severity is a bit mask classifying a message. A message may carry several
// bits, e.g. SeverityHash|SeverityWarn.
type Severity uint32

const (
	SeverityDebug Severity = 1 << iota
	SeverityInfo
	SeverityWarn
	SeverityError

	// SeverityHash tags hash table diagnostics (generation bumps, threat
	// pattern flips).
	SeverityHash Severity = 128

	SeverityAll Severity = SeverityDebug | SeverityInfo | SeverityWarn | SeverityError | SeverityHash
)

func (s Severity) String() string {
	if s == 0 {
		return "none"
	}
	var names []string
	for _, f := range []struct {
		bit  Severity
		name string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarn, "warn"},
		{SeverityError, "error"},
		{SeverityHash, "hash"},
	} {
		if s&f.bit != 0 {
			names = append(names, f.name)
		}
	}
	return strings.Join(names, "|")
}

// Sink receives diagnostic messages.
type Sink interface {
	Print(mask Severity, msg string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(mask Severity, msg string)

func (f SinkFunc) Print(mask Severity, msg string) { f(mask, msg) }

// Discard drops every message.
var Discard Sink = SinkFunc(func(Severity, string) {})

type filter struct {
	next Sink
	mask Severity
}

func (f filter) Print(mask Severity, msg string) {
	if mask&f.mask != 0 {
		f.next.Print(mask, msg)
	}
}

// Filter passes on only the messages whose mask intersects display.
func Filter(sink Sink, display Severity) Sink {
	return filter{next: sink, mask: display}
}

type zerologSink struct {
	log zerolog.Logger
}

// NewZerolog returns a Sink writing to log. The most severe bit of the mask
// picks the level; the full mask is attached as the "mask" field.
func NewZerolog(log zerolog.Logger) Sink {
	return zerologSink{log: log}
}

func (z zerologSink) Print(mask Severity, msg string) {
	z.log.WithLevel(Level(mask)).Stringer("mask", mask).Msg(msg)
}

// Level maps a severity mask to a zerolog level. Hash diagnostics without a
// severity bit are informational.
func Level(mask Severity) zerolog.Level {
	switch {
	case mask&SeverityError != 0:
		return zerolog.ErrorLevel
	case mask&SeverityWarn != 0:
		return zerolog.WarnLevel
	case mask&(SeverityInfo|SeverityHash) != 0:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}
