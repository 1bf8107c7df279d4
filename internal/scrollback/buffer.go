package scrollback

import (
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/stlalpha/tecnoter/internal/ansi"
)

// DefaultMaxLines bounds the buffer when no limit is given.
const DefaultMaxLines = 2000

type entry struct {
	line     Line
	rendered string
	zoneIDs  []string
	zoneCmds []string
}

// Buffer is the append-only scrollback of one node. It is safe for
// concurrent use.
type Buffer struct {
	mu      sync.Mutex
	entries []entry
	limit   int
	seq     uint64
	version uint64

	styles Styles
	zones  *zone.Manager
	prefix string
}

// NewBuffer creates a Buffer keeping at most limit lines. zones may be
// nil, in which case hotspots are rendered but not clickable.
func NewBuffer(limit int, styles Styles, zones *zone.Manager) *Buffer {
	if limit <= 0 {
		limit = DefaultMaxLines
	}
	b := &Buffer{limit: limit, styles: styles, zones: zones}
	if zones != nil {
		b.prefix = zones.NewPrefix()
	}
	return b
}

// Append adds one line of text with the given kind.
func (b *Buffer) Append(text string, kind Kind) {
	b.AppendLines(Line{Text: text, Kind: kind})
}

// AppendLines adds lines in order. A ClearScreen line empties the buffer
// at its position; Internal lines are skipped.
func (b *Buffer) AppendLines(lines ...Line) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, l := range lines {
		switch l.Kind {
		case KindClearScreen:
			b.clearLocked()
			continue
		case KindInternal:
			continue
		}
		b.entries = append(b.entries, b.render(l))
	}
	if over := len(b.entries) - b.limit; over > 0 {
		for _, e := range b.entries[:over] {
			b.forget(e)
		}
		b.entries = append([]entry(nil), b.entries[over:]...)
	}
	b.version++
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clearLocked()
	b.version++
}

func (b *Buffer) clearLocked() {
	for _, e := range b.entries {
		b.forget(e)
	}
	b.entries = nil
}

func (b *Buffer) forget(e entry) {
	if b.zones == nil {
		return
	}
	for _, id := range e.zoneIDs {
		b.zones.Clear(id)
	}
}

func (b *Buffer) render(l Line) entry {
	e := entry{line: l}
	text := l.Text
	for i, hs := range l.Hotspots {
		if hs.Label == "" || !strings.Contains(text, hs.Label) {
			continue
		}
		label := b.styles.Hotspot.Render(ansi.StripPipeCodes(hs.Label))
		if b.zones != nil {
			id := fmt.Sprintf("%sl%d_%d", b.prefix, b.seq, i)
			label = b.zones.Mark(id, label)
			e.zoneIDs = append(e.zoneIDs, id)
			e.zoneCmds = append(e.zoneCmds, hs.Cmd)
		}
		text = strings.Replace(text, hs.Label, label, 1)
	}
	b.seq++

	rendered := ansi.Render(text)
	if st, ok := b.styles.forKind(l.Kind); ok {
		rendered = st.Render(rendered)
	}
	e.rendered = rendered
	return e
}

// Len returns the number of retained lines.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Version changes on every mutation so views know when to re-render.
func (b *Buffer) Version() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// Lines returns a copy of the retained lines.
func (b *Buffer) Lines() []Line {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Line, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.line
	}
	return out
}

// PlainText returns the retained text with markup removed, one line per
// entry.
func (b *Buffer) PlainText() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	parts := make([]string, len(b.entries))
	for i, e := range b.entries {
		parts[i] = ansi.StripPipeCodes(e.line.Text)
	}
	return strings.Join(parts, "\n")
}

// Render returns the styled scrollback for a viewport.
func (b *Buffer) Render() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	parts := make([]string, len(b.entries))
	for i, e := range b.entries {
		parts[i] = e.rendered
	}
	return strings.Join(parts, "\n")
}

// HotspotAt returns the command of the hotspot under a mouse event.
func (b *Buffer) HotspotAt(msg tea.MouseMsg) (string, bool) {
	if b.zones == nil {
		return "", false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.entries) - 1; i >= 0; i-- {
		e := b.entries[i]
		for j, id := range e.zoneIDs {
			if b.zones.Get(id).InBounds(msg) {
				return e.zoneCmds[j], true
			}
		}
	}
	return "", false
}
