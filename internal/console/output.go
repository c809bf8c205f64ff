package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Severity categorizes an output line for styling and for tests that assert
// on outcome classes rather than exact text.
type Severity int

const (
	SeverityRaw Severity = iota
	SeverityInput
	SeverityInfo
	SeveritySuccess
	SeverityWarning
	SeverityError
	SeverityException
)

func (s Severity) String() string {
	switch s {
	case SeverityRaw:
		return "raw"
	case SeverityInput:
		return "input"
	case SeverityInfo:
		return "info"
	case SeveritySuccess:
		return "success"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityException:
		return "exception"
	}
	return "unknown"
}

// OutputLine is one entry of the display log.
type OutputLine struct {
	Text     string
	Severity Severity
	Time     time.Time
}

// Styles maps severities to terminal styles. With color disabled every
// severity renders as plain text, which keeps scripted transcripts exact.
type Styles struct {
	color     bool
	input     lipgloss.Style
	info      lipgloss.Style
	success   lipgloss.Style
	warning   lipgloss.Style
	errs      lipgloss.Style
	exception lipgloss.Style
}

// NewStyles builds the severity style map.
func NewStyles(color bool) *Styles {
	return &Styles{
		color:     color,
		input:     lipgloss.NewStyle().Faint(true),
		info:      lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		success:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		warning:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		errs:      lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		exception: lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true),
	}
}

// Render styles text for a severity; raw text passes through untouched.
func (s *Styles) Render(sev Severity, text string) string {
	if s == nil || !s.color {
		return text
	}
	switch sev {
	case SeverityInput:
		return s.input.Render(text)
	case SeverityInfo:
		return s.info.Render(text)
	case SeveritySuccess:
		return s.success.Render(text)
	case SeverityWarning:
		return s.warning.Render(text)
	case SeverityError:
		return s.errs.Render(text)
	case SeverityException:
		return s.exception.Render(text)
	default:
		return text
	}
}

// OutputLog is the append-only display log. Every appended line is also
// streamed, styled, to the attached writer. The log itself is unbounded;
// Clear is the only way it shrinks.
type OutputLog struct {
	mu    sync.Mutex
	lines []OutputLine
	out   io.Writer
	style *Styles
}

// NewOutputLog builds a log streaming to out (nil discards).
func NewOutputLog(out io.Writer, style *Styles) *OutputLog {
	if out == nil {
		out = io.Discard
	}
	return &OutputLog{out: &syncWriter{out}, style: style}
}

// Append records one line and streams it. Embedded newlines stay within the
// single logical line.
func (l *OutputLog) Append(sev Severity, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, OutputLine{Text: text, Severity: sev, Time: time.Now()})
	rendered := l.style.Render(sev, text)
	if !strings.HasSuffix(rendered, "\n") {
		rendered += "\n"
	}
	_, _ = io.WriteString(l.out, rendered)
}

// Appendf formats and appends.
func (l *OutputLog) Appendf(sev Severity, format string, args ...any) {
	l.Append(sev, fmt.Sprintf(format, args...))
}

// Lines returns a copy of the recorded lines.
func (l *OutputLog) Lines() []OutputLine {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]OutputLine, len(l.lines))
	copy(out, l.lines)
	return out
}

// Clear drops all recorded lines.
func (l *OutputLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = nil
}

// syncWriter wraps an io.Writer and calls Sync if it's an *os.File, so
// output hits the terminal before the prompt redraws.
type syncWriter struct {
	io.Writer
}

func (w *syncWriter) Write(p []byte) (n int, err error) {
	n, err = w.Writer.Write(p)
	if f, ok := w.Writer.(*os.File); ok {
		_ = f.Sync()
	}
	return
}
