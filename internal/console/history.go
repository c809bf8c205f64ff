package console

// History is the in-memory command recall buffer: entries most-recent-first
// with a browse cursor. Cursor -1 means not browsing; recall at -1 is an
// empty edit buffer. No wraparound, no persistence.
type History struct {
	entries []string
	cursor  int
	limit   int
}

// NewHistory builds an empty buffer. limit caps retained entries; 0 keeps
// everything.
func NewHistory(limit int) *History {
	if limit < 0 {
		limit = 0
	}
	return &History{cursor: -1, limit: limit}
}

// Add records a submitted line as the newest entry and stops browsing.
// Blank lines are not recorded.
func (h *History) Add(line string) {
	h.cursor = -1
	if line == "" {
		return
	}
	h.entries = append([]string{line}, h.entries...)
	if h.limit > 0 && len(h.entries) > h.limit {
		h.entries = h.entries[:h.limit]
	}
}

// Up moves the cursor one entry older and returns that entry's text. At the
// oldest entry it stays put, still returning the text; moved reports whether
// the cursor actually advanced.
func (h *History) Up() (text string, moved bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	if h.cursor < len(h.entries)-1 {
		h.cursor++
		return h.entries[h.cursor], true
	}
	return h.entries[h.cursor], false
}

// Down moves the cursor one entry newer. Moving past the newest entry
// resets the cursor to -1 and yields the empty edit buffer; further downs
// are no-ops, keeping it there.
func (h *History) Down() (text string, moved bool) {
	switch {
	case h.cursor < 0:
		return "", false
	case h.cursor == 0:
		h.cursor = -1
		return "", true
	default:
		h.cursor--
		return h.entries[h.cursor], true
	}
}

// Reset stops browsing without touching entries.
func (h *History) Reset() { h.cursor = -1 }

// Cursor reports the current browse position (-1 when not browsing).
func (h *History) Cursor() int { return h.cursor }

// Len reports how many entries are buffered.
func (h *History) Len() int { return len(h.entries) }

// Entries returns a copy, most recent first.
func (h *History) Entries() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

// Chronological returns a copy ordered oldest first, the shape the
// interactive prompt and the history command want.
func (h *History) Chronological() []string {
	out := make([]string, len(h.entries))
	for i, e := range h.entries {
		out[len(h.entries)-1-i] = e
	}
	return out
}
