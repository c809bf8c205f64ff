package console

import "sync/atomic"

// Op identifies an operation family that carries a status flag.
type Op int

const (
	OpExec Op = iota
	OpDOM
	OpScrape
)

func (o Op) String() string {
	switch o {
	case OpExec:
		return "exec"
	case OpDOM:
		return "dom"
	case OpScrape:
		return "scrape"
	}
	return "unknown"
}

// StatusFlags holds the three independent in-flight indicators. They are
// purely presentational: handlers are the only writers, but the badge and
// the status command read from other goroutines, hence atomics. No flag
// depends on another.
type StatusFlags struct {
	exec   atomic.Bool
	dom    atomic.Bool
	scrape atomic.Bool
}

func (f *StatusFlags) flag(op Op) *atomic.Bool {
	switch op {
	case OpDOM:
		return &f.dom
	case OpScrape:
		return &f.scrape
	default:
		return &f.exec
	}
}

// Begin marks op active and returns the cleanup that marks it idle. Callers
// defer the cleanup so the flag drops on every path, error or not.
func (f *StatusFlags) Begin(op Op) func() {
	b := f.flag(op)
	b.Store(true)
	return func() { b.Store(false) }
}

// Active reports whether op is in flight.
func (f *StatusFlags) Active(op Op) bool {
	return f.flag(op).Load()
}

// Snapshot reads all three flags at once for status display.
func (f *StatusFlags) Snapshot() (exec, dom, scrape bool) {
	return f.exec.Load(), f.dom.Load(), f.scrape.Load()
}
