// Package boot times the boot banner, the auto-login countdown and the
// simulated typing that fills the login prompt. Every scheduled step
// carries the generation it was started in; Cancel bumps the generation
// so steps still in flight are dropped when they arrive.
package boot

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stlalpha/tecnoter/internal/scrollback"
)

const (
	// CountdownSeconds is the wait before the node logs in as guest.
	CountdownSeconds = 10
	// BarWidth is the number of cells in the countdown bar.
	BarWidth = 20

	fastLineDelay = 50 * time.Millisecond
	slowLineDelay = 150 * time.Millisecond
	settleDelay   = 500 * time.Millisecond
	glitchChance  = 0.2
)

// LineMsg asks for boot line Index to be printed.
type LineMsg struct {
	Gen   uint64
	Index int
}

// BootDoneMsg follows the last boot line.
type BootDoneMsg struct {
	Gen uint64
}

// TickMsg is one second of the login countdown.
type TickMsg struct {
	Gen uint64
}

// TypeMsg types the next character of the auto-login name.
type TypeMsg struct {
	Gen uint64
}

// SubmitMsg is sent once typing has settled; Text is submitted as if
// Enter had been pressed.
type SubmitMsg struct {
	Gen  uint64
	Text string
}

// Sequencer holds the timing state of one node. It is driven from the
// program's Update loop and is not safe for concurrent use.
type Sequencer struct {
	gen   uint64
	rng   *rand.Rand
	lines []scrollback.Line
	delay time.Duration

	left   int
	typed  string
	target string
	glitch bool
}

func New() *Sequencer {
	return &Sequencer{
		rng:  rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x7ec)),
		left: -1,
	}
}

// Cancel invalidates every pending step.
func (s *Sequencer) Cancel() {
	s.gen++
	s.lines = nil
	s.left = -1
	s.typed, s.target = "", ""
	s.glitch = false
}

// Current reports whether gen belongs to the running sequence.
func (s *Sequencer) Current(gen uint64) bool {
	return gen == s.gen
}

// LineDelay returns a random delay in [d/2, 3d/2) where d is 50ms with a
// deep link and 150ms without.
func (s *Sequencer) LineDelay() time.Duration {
	d := slowLineDelay
	if s.delay > 0 {
		d = s.delay
	}
	return time.Duration(s.rng.Float64()*float64(d)) + d/2
}

// StartBoot begins printing lines.
func (s *Sequencer) StartBoot(lines []scrollback.Line, deepLink bool) tea.Cmd {
	s.Cancel()
	s.lines = lines
	s.delay = slowLineDelay
	if deepLink {
		s.delay = fastLineDelay
	}
	gen := s.gen
	return func() tea.Msg { return LineMsg{Gen: gen, Index: 0} }
}

// Line returns the boot line for msg and the command for the next step.
// ok is false for stale messages.
func (s *Sequencer) Line(msg LineMsg) (line scrollback.Line, next tea.Cmd, ok bool) {
	if !s.Current(msg.Gen) || msg.Index < 0 || msg.Index >= len(s.lines) {
		return scrollback.Line{}, nil, false
	}
	gen, i := s.gen, msg.Index+1
	if i >= len(s.lines) {
		next = tea.Tick(s.LineDelay(), func(time.Time) tea.Msg { return BootDoneMsg{Gen: gen} })
	} else {
		next = tea.Tick(s.LineDelay(), func(time.Time) tea.Msg { return LineMsg{Gen: gen, Index: i} })
	}
	return s.lines[msg.Index], next, true
}

// StartCountdown shows the auto-login bar and schedules the first tick.
func (s *Sequencer) StartCountdown() tea.Cmd {
	s.Cancel()
	s.left = CountdownSeconds
	return s.tick()
}

func (s *Sequencer) tick() tea.Cmd {
	gen := s.gen
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return TickMsg{Gen: gen} })
}

// Tick advances the countdown. When it expires the auto-login typing for
// "guest" starts.
func (s *Sequencer) Tick(msg TickMsg) tea.Cmd {
	if !s.Current(msg.Gen) || s.left < 0 {
		return nil
	}
	s.left--
	if s.left > 0 {
		return s.tick()
	}
	return s.Type("guest")
}

// StopCountdown hides the countdown bar without invalidating other steps
// scheduled in the current generation.
func (s *Sequencer) StopCountdown() {
	s.left = -1
}

// Counting reports whether the countdown bar is showing.
func (s *Sequencer) Counting() bool {
	return s.left >= 0
}

// Left returns the seconds remaining on the countdown.
func (s *Sequencer) Left() int {
	return s.left
}

// Filled returns the number of bar cells filled with left seconds to go.
func Filled(left int) int {
	f := int(math.Round(float64(CountdownSeconds-left) / CountdownSeconds * BarWidth))
	return min(max(f, 0), BarWidth)
}

// Bar renders the countdown bar, e.g. "[====>                ]".
func Bar(left int) string {
	f := Filled(left)
	return "[" + strings.Repeat("=", f) + ">" + strings.Repeat(" ", BarWidth-f) + "]"
}

// Indicator is the countdown text without its buttons.
func Indicator(left int) string {
	return fmt.Sprintf("Auto-login as 'guest' in %ds %s", left, Bar(left))
}

// Type cancels the countdown and starts typing text into the prompt.
func (s *Sequencer) Type(text string) tea.Cmd {
	s.Cancel()
	s.target = text
	return s.typeNext()
}

func (s *Sequencer) typeNext() tea.Cmd {
	gen := s.gen
	d := 50*time.Millisecond + time.Duration(s.rng.Float64()*float64(100*time.Millisecond))
	return tea.Tick(d, func(time.Time) tea.Msg { return TypeMsg{Gen: gen} })
}

// Typed is the text typed so far.
func (s *Sequencer) Typed() string {
	return s.typed
}

// Typing reports whether simulated typing is in progress.
func (s *Sequencer) Typing() bool {
	return s.target != ""
}

// Glitch reports whether the current frame should flash.
func (s *Sequencer) Glitch() bool {
	return s.glitch
}

// TypeStep types one character. After the last one it waits for the
// settle delay and then submits.
func (s *Sequencer) TypeStep(msg TypeMsg) tea.Cmd {
	if !s.Current(msg.Gen) || s.target == "" {
		return nil
	}
	s.glitch = false
	if len(s.typed) < len(s.target) {
		s.typed = s.target[:len(s.typed)+1]
		s.glitch = s.rng.Float64() < glitchChance
		if len(s.typed) < len(s.target) {
			return s.typeNext()
		}
		gen, text := s.gen, s.target
		return tea.Tick(settleDelay, func(time.Time) tea.Msg { return SubmitMsg{Gen: gen, Text: text} })
	}
	return nil
}

// Submitted ends typing for msg. ok is false for stale messages.
func (s *Sequencer) Submitted(msg SubmitMsg) (text string, ok bool) {
	if !s.Current(msg.Gen) || s.target == "" {
		return "", false
	}
	s.Cancel()
	return msg.Text, true
}

// After schedules msg after d in the current generation. The caller
// checks Current when msg arrives.
func (s *Sequencer) After(d time.Duration, msg func(gen uint64) tea.Msg) tea.Cmd {
	gen := s.gen
	if d <= 0 {
		return func() tea.Msg { return msg(gen) }
	}
	return tea.Tick(d, func(time.Time) tea.Msg { return msg(gen) })
}

// Gen returns the current generation.
func (s *Sequencer) Gen() uint64 {
	return s.gen
}
