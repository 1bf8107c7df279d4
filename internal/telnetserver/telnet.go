package telnetserver

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stlalpha/tecnoter/internal/logging"
)

// Telnet protocol constants
const (
	IAC  byte = 255 // Interpret As Command
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250 // Subnegotiation Begin
	SE   byte = 240 // Subnegotiation End

	OptEcho     byte = 1  // Echo option
	OptSGA      byte = 3  // Suppress Go Ahead
	OptTermType byte = 24 // Terminal Type (RFC 1091)
	OptNAWS     byte = 31 // Negotiate About Window Size
	OptLinemode byte = 34 // Linemode

	TermTypeIs   byte = 0 // IS sub-command: client sends its terminal type
	TermTypeSend byte = 1 // SEND sub-command: server requests terminal type
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	maxDimension  = 500
	maxSBData     = 256
)

var cprPattern = regexp.MustCompile(`\x1b\[(\d+);(\d+)R`)

// telnetState tracks the IAC state machine
type telnetState int

const (
	stateData telnetState = iota
	stateIAC
	stateWill
	stateWont
	stateDo
	stateDont
	stateSB
	stateSBData
	stateSBIAC
)

// TelnetConn wraps a net.Conn with telnet protocol awareness.
// Read() strips IAC commands and folds CR NUL / CR LF into CR;
// Write() escapes 0xFF bytes.
type TelnetConn struct {
	conn    net.Conn
	reader  *bufio.Reader
	writeMu sync.Mutex // protects writes to conn

	width   int
	height  int
	gotNAWS bool
	sizeMu  sync.RWMutex // protects width/height/gotNAWS

	resize chan tea.WindowSizeMsg

	// IAC state machine (persists across Read calls)
	state    telnetState
	sbOption byte   // option byte for current subnegotiation
	sbData   []byte // accumulated subnegotiation data
	afterCR  bool

	closed int32 // atomic flag

	// TERM_TYPE negotiation (RFC 1091)
	termType     string
	termTypeMu   sync.RWMutex
	willTermType bool // true after client responds WILL TERM_TYPE
}

// NewTelnetConn wraps an existing net.Conn with telnet protocol handling.
func NewTelnetConn(conn net.Conn) *TelnetConn {
	return &TelnetConn{
		conn:   conn,
		reader: bufio.NewReaderSize(conn, 256),
		width:  defaultWidth,
		height: defaultHeight,
		resize: make(chan tea.WindowSizeMsg, 1),
		state:  stateData,
	}
}

// Negotiate sends telnet option negotiations and waits for client responses.
// Phase 1: sends DO NAWS + DO TERM_TYPE, drains responses (500ms).
// Phase 2: if client responded WILL TERM_TYPE, sends SB TERM_TYPE SEND and
// drains again (500ms) to collect the IS <string> subnegotiation.
func (tc *TelnetConn) Negotiate() error {
	// IAC WILL ECHO       - server will echo input
	// IAC WILL SGA        - suppress go-ahead
	// IAC DO SGA          - client should suppress go-ahead
	// IAC DONT LINEMODE   - disable line mode
	// IAC DO NAWS         - request window size
	// IAC DO TERM_TYPE    - request terminal type
	negotiations := []byte{
		IAC, WILL, OptEcho,
		IAC, WILL, OptSGA,
		IAC, DO, OptSGA,
		IAC, DONT, OptLinemode,
		IAC, DO, OptNAWS,
		IAC, DO, OptTermType,
	}
	if err := tc.writeRaw(negotiations); err != nil {
		return fmt.Errorf("failed to send telnet negotiations: %w", err)
	}

	tc.drain(500 * time.Millisecond)

	if tc.willTermType {
		if err := tc.writeRaw([]byte{IAC, SB, OptTermType, TermTypeSend, IAC, SE}); err != nil {
			return fmt.Errorf("failed to send TERM_TYPE request: %w", err)
		}
		tc.drain(500 * time.Millisecond)
	}
	return nil
}

func (tc *TelnetConn) writeRaw(p []byte) error {
	tc.writeMu.Lock()
	defer tc.writeMu.Unlock()
	_, err := tc.conn.Write(p)
	return err
}

// drain processes negotiation replies until the client goes quiet for d.
// Data bytes that arrive meanwhile are discarded.
func (tc *TelnetConn) drain(d time.Duration) []byte {
	var data []byte
	buf := make([]byte, 64)
	for {
		tc.conn.SetReadDeadline(time.Now().Add(d))
		n, err := tc.reader.Read(buf)
		for _, b := range buf[:n] {
			if out, ok := tc.feed(b); ok {
				data = append(data, out)
			}
		}
		if err != nil || tc.reader.Buffered() == 0 && n < len(buf) {
			break
		}
	}
	tc.conn.SetReadDeadline(time.Time{})
	return data
}

// feed advances the IAC state machine by one byte and reports the data
// byte it yields, if any.
func (tc *TelnetConn) feed(b byte) (byte, bool) {
	switch tc.state {
	case stateData:
		if b == IAC {
			tc.state = stateIAC
			return 0, false
		}
		if tc.afterCR && (b == 0 || b == '\n') {
			tc.afterCR = false
			return 0, false
		}
		tc.afterCR = b == '\r'
		return b, true

	case stateIAC:
		switch b {
		case IAC:
			tc.state = stateData
			return IAC, true // escaped 0xFF
		case WILL:
			tc.state = stateWill
		case WONT:
			tc.state = stateWont
		case DO:
			tc.state = stateDo
		case DONT:
			tc.state = stateDont
		case SB:
			tc.state = stateSB
		default:
			// BRK, IP, AYT and friends are ignored.
			tc.state = stateData
		}

	case stateWill, stateWont, stateDo, stateDont:
		logging.Debug("Telnet negotiation: cmd=%d option=%d", tc.state, b)
		if tc.state == stateWill && b == OptTermType {
			tc.willTermType = true
		}
		tc.state = stateData

	case stateSB:
		tc.sbOption = b
		tc.sbData = tc.sbData[:0]
		tc.state = stateSBData

	case stateSBData:
		if b == IAC {
			tc.state = stateSBIAC
		} else if len(tc.sbData) < maxSBData {
			tc.sbData = append(tc.sbData, b)
		}

	case stateSBIAC:
		switch b {
		case SE:
			tc.handleSubnegotiation()
			tc.state = stateData
		case IAC:
			if len(tc.sbData) < maxSBData {
				tc.sbData = append(tc.sbData, IAC)
			}
			tc.state = stateSBData
		default:
			tc.state = stateData
		}
	}
	return 0, false
}

// handleSubnegotiation processes a completed subnegotiation.
func (tc *TelnetConn) handleSubnegotiation() {
	switch tc.sbOption {
	case OptNAWS:
		if len(tc.sbData) < 4 {
			return
		}
		width := int(tc.sbData[0])<<8 | int(tc.sbData[1])
		height := int(tc.sbData[2])<<8 | int(tc.sbData[3])
		if width <= 0 || height <= 0 || width > maxDimension || height > maxDimension {
			logging.Debug("Telnet NAWS: ignoring invalid dimensions %dx%d", width, height)
			return
		}
		tc.setSize(width, height)
		tc.sizeMu.Lock()
		tc.gotNAWS = true
		tc.sizeMu.Unlock()

	case OptTermType:
		// sbData[0] is TermTypeIs (0); terminal type string follows
		if len(tc.sbData) >= 1 && tc.sbData[0] == TermTypeIs {
			t := strings.ToLower(strings.TrimSpace(string(tc.sbData[1:])))
			if t != "" {
				tc.termTypeMu.Lock()
				tc.termType = t
				tc.termTypeMu.Unlock()
				logging.Debug("Telnet TERM_TYPE: %s", t)
			}
		}
	}
}

func (tc *TelnetConn) setSize(width, height int) {
	tc.sizeMu.Lock()
	changed := width != tc.width || height != tc.height
	tc.width, tc.height = width, height
	tc.sizeMu.Unlock()
	if !changed || atomic.LoadInt32(&tc.closed) == 1 {
		return
	}
	msg := tea.WindowSizeMsg{Width: width, Height: height}
	// Keep only the latest size if nobody has picked up the last one.
	select {
	case tc.resize <- msg:
	default:
		select {
		case <-tc.resize:
		default:
		}
		select {
		case tc.resize <- msg:
		default:
		}
	}
}

// Resize delivers window size changes reported after negotiation.
func (tc *TelnetConn) Resize() <-chan tea.WindowSizeMsg {
	return tc.resize
}

// TermType returns the terminal type string reported by the client via TERM_TYPE
// negotiation (RFC 1091). Returns "ansi" if no type was negotiated.
func (tc *TelnetConn) TermType() string {
	tc.termTypeMu.RLock()
	t := tc.termType
	tc.termTypeMu.RUnlock()
	if t == "" {
		return "ansi"
	}
	return t
}

// Read reads data from the telnet connection, stripping IAC commands transparently.
func (tc *TelnetConn) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	buf := make([]byte, len(p))
	for {
		n, err := tc.reader.Read(buf)
		written := 0
		for _, b := range buf[:n] {
			if out, ok := tc.feed(b); ok {
				p[written] = out
				written++
			}
		}
		if written > 0 {
			return written, nil
		}
		if err != nil {
			return 0, err
		}
	}
}

// Write writes data to the telnet connection, escaping any 0xFF bytes as IAC IAC.
func (tc *TelnetConn) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	tc.writeMu.Lock()
	defer tc.writeMu.Unlock()

	if bytes.IndexByte(p, IAC) < 0 {
		return tc.conn.Write(p)
	}
	escaped := bytes.ReplaceAll(p, []byte{IAC}, []byte{IAC, IAC})
	if _, err := tc.conn.Write(escaped); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close closes the telnet connection.
func (tc *TelnetConn) Close() error {
	if atomic.CompareAndSwapInt32(&tc.closed, 0, 1) {
		return tc.conn.Close()
	}
	return nil
}

// RemoteAddr returns the remote network address.
func (tc *TelnetConn) RemoteAddr() net.Addr {
	return tc.conn.RemoteAddr()
}

// WindowSize returns the current terminal dimensions.
func (tc *TelnetConn) WindowSize() (width, height int) {
	tc.sizeMu.RLock()
	defer tc.sizeMu.RUnlock()
	return tc.width, tc.height
}

// DetectTerminalSize settles the terminal size before the session starts.
// A NAWS report wins; without one the client is asked for its cursor
// position after moving the cursor to the far corner (ANSI CPR), and
// 80x24 is used when that fails too.
func (tc *TelnetConn) DetectTerminalSize(timeout time.Duration) (width, height int, method string) {
	tc.sizeMu.RLock()
	naws := tc.gotNAWS
	tc.sizeMu.RUnlock()
	if naws {
		w, h := tc.WindowSize()
		return w, h, "NAWS"
	}

	w, h, err := tc.detectViaCursorPositioning(timeout)
	if err == nil {
		tc.setSize(w, h)
		return w, h, "ANSI"
	}
	logging.Debug("Telnet ANSI CPR detection failed: %v", err)
	return defaultWidth, defaultHeight, "DEFAULT"
}

// detectViaCursorPositioning saves the cursor, moves it to 999;999 (clamped
// by the terminal), asks for its position and restores it.
func (tc *TelnetConn) detectViaCursorPositioning(timeout time.Duration) (width, height int, err error) {
	if err := tc.writeRaw([]byte("\x1b[s\x1b[999;999H\x1b[6n")); err != nil {
		return 0, 0, fmt.Errorf("failed to send CPR query: %w", err)
	}
	defer tc.writeRaw([]byte("\x1b[u"))

	var data []byte
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		data = append(data, tc.drain(100*time.Millisecond)...)
		if cprPattern.Match(data) {
			break
		}
	}

	m := cprPattern.FindSubmatch(data)
	if m == nil {
		return 0, 0, errors.New("no CPR response")
	}
	rows, _ := strconv.Atoi(string(m[1]))
	cols, _ := strconv.Atoi(string(m[2]))
	if rows < 1 || cols < 1 || rows > maxDimension || cols > maxDimension {
		return 0, 0, fmt.Errorf("implausible CPR response %dx%d", cols, rows)
	}
	return cols, rows, nil
}
