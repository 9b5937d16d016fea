// Package diag collects and prints compiler diagnostics.
package diag

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	}
	return "unknown"
}

// Pos is a location in a text IR file. The zero Pos means "no location".
type Pos struct {
	File string
	Line int
}

func (p Pos) IsValid() bool { return p.File != "" || p.Line > 0 }

func (p Pos) String() string {
	switch {
	case p.File != "" && p.Line > 0:
		return fmt.Sprintf("%s:%d", p.File, p.Line)
	case p.File != "":
		return p.File
	case p.Line > 0:
		return fmt.Sprintf("line %d", p.Line)
	}
	return "-"
}

// Diagnostic is one reported message.
type Diagnostic struct {
	Severity Severity
	Pos      Pos
	Message  string
}

type diagnosticJSON struct {
	Severity string `json:"severity"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Message  string `json:"message"`
}

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

// Reporter prints diagnostics as they arrive and remembers them. It is safe
// for concurrent use by the batch driver.
type Reporter struct {
	mu     sync.Mutex
	w      io.Writer
	format string
	diags  []Diagnostic
	errs   int
}

// NewReporter returns a reporter writing to w in "text" or "json" format.
// Unknown formats fall back to text.
func NewReporter(w io.Writer, format string) *Reporter {
	if format != "json" {
		format = "text"
	}
	return &Reporter{w: w, format: format}
}

// Report records and prints one diagnostic.
func (r *Reporter) Report(sev Severity, pos Pos, msg string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d := Diagnostic{Severity: sev, Pos: pos, Message: msg}
	r.diags = append(r.diags, d)
	if sev == SevError {
		r.errs++
	}
	if r.w == nil {
		return
	}
	if r.format == "json" {
		_ = json.NewEncoder(r.w).Encode(diagnosticJSON{
			Severity: sev.String(),
			File:     pos.File,
			Line:     pos.Line,
			Message:  msg,
		})
		return
	}
	label := sev.String()
	switch sev {
	case SevError:
		label = errorColor.Sprint(label)
	case SevWarning:
		label = warningColor.Sprint(label)
	default:
		label = infoColor.Sprint(label)
	}
	if pos.IsValid() {
		fmt.Fprintf(r.w, "%s: %s: %s\n", pos, label, msg)
	} else {
		fmt.Fprintf(r.w, "%s: %s\n", label, msg)
	}
}

// Error reports an error at pos.
func (r *Reporter) Error(pos Pos, msg string) { r.Report(SevError, pos, msg) }

// Errorf reports an error without a location.
func (r *Reporter) Errorf(format string, args ...any) {
	r.Report(SevError, Pos{}, fmt.Sprintf(format, args...))
}

// Warn reports a warning at pos.
func (r *Reporter) Warn(pos Pos, msg string) { r.Report(SevWarning, pos, msg) }

// Warnf reports a warning without a location.
func (r *Reporter) Warnf(format string, args ...any) {
	r.Report(SevWarning, Pos{}, fmt.Sprintf(format, args...))
}

// HasErrors reports whether any error was reported.
func (r *Reporter) HasErrors() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errs > 0
}

// ErrorCount returns the number of errors reported.
func (r *Reporter) ErrorCount() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errs
}

// Diagnostics returns a copy of everything reported so far.
func (r *Reporter) Diagnostics() []Diagnostic {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Diagnostic(nil), r.diags...)
}
