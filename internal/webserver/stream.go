package webserver

import (
	"encoding/json"
	"io"
	"log"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	maxMessage = 64 * 1024
)

// controlMessage is a text frame from the browser. Binary frames carry
// raw keyboard input.
type controlMessage struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
	Cols int    `json:"cols,omitempty"`
	Rows int    `json:"rows,omitempty"`
}

// stream adapts a websocket connection to the byte streams a node reads
// and writes.
type stream struct {
	conn   *websocket.Conn
	in     *io.PipeReader
	inW    *io.PipeWriter
	send   chan []byte
	resize chan tea.WindowSizeMsg

	closing   chan struct{}
	closeOnce sync.Once
	dead      chan struct{}
	deadOnce  sync.Once
}

func newStream(conn *websocket.Conn) *stream {
	pr, pw := io.Pipe()
	return &stream{
		conn:    conn,
		in:      pr,
		inW:     pw,
		send:    make(chan []byte, 256),
		resize:  make(chan tea.WindowSizeMsg, 1),
		closing: make(chan struct{}),
		dead:    make(chan struct{}),
	}
}

// Write queues terminal output for the browser.
func (s *stream) Write(p []byte) (int, error) {
	b := append([]byte(nil), p...)
	select {
	case s.send <- b:
		return len(p), nil
	case <-s.dead:
		return 0, io.ErrClosedPipe
	case <-s.closing:
		return 0, io.ErrClosedPipe
	}
}

// close flushes queued output and ends the write pump.
func (s *stream) close() {
	s.closeOnce.Do(func() { close(s.closing) })
}

func (s *stream) fail() {
	s.deadOnce.Do(func() { close(s.dead) })
}

// writePump pumps queued output to the websocket connection.
func (s *stream) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.fail()
	}()

	for {
		select {
		case msg := <-s.send:
			if err := s.writeFrame(websocket.BinaryMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			if err := s.writeFrame(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.closing:
			for {
				select {
				case msg := <-s.send:
					if err := s.writeFrame(websocket.BinaryMessage, msg); err != nil {
						return
					}
				default:
					s.writeFrame(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
					return
				}
			}
		}
	}
}

func (s *stream) writeFrame(kind int, data []byte) error {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(kind, data)
}

// readPump feeds browser input to the node until the connection drops,
// then calls hangup.
func (s *stream) readPump(hangup func()) {
	defer func() {
		s.inW.CloseWithError(io.EOF)
		s.fail()
		hangup()
	}()

	s.conn.SetReadLimit(maxMessage)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		kind, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WARN: WebSocket read error: %v", err)
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(pongWait))

		if kind == websocket.BinaryMessage {
			if _, err := s.inW.Write(message); err != nil {
				return
			}
			continue
		}
		if err := s.handleControl(message); err != nil {
			return
		}
	}
}

func (s *stream) handleControl(message []byte) error {
	var msg controlMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		// Plain text frames are typed input.
		_, err := s.inW.Write(message)
		return err
	}
	switch msg.Type {
	case "input":
		_, err := s.inW.Write([]byte(msg.Data))
		return err
	case "resize":
		if msg.Cols <= 0 || msg.Rows <= 0 {
			return nil
		}
		size := tea.WindowSizeMsg{Width: msg.Cols, Height: msg.Rows}
		select {
		case s.resize <- size:
		default:
			// Replace a size nobody has read yet.
			select {
			case <-s.resize:
			default:
			}
			s.resize <- size
		}
	}
	return nil
}
