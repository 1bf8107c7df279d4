package telnetserver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stlalpha/tecnoter/internal/node"
)

// readThrough pushes raw bytes from the client side of a pipe and returns
// what TelnetConn.Read yields.
func readThrough(t *testing.T, raw []byte) ([]byte, *TelnetConn) {
	t.Helper()
	server, client := net.Pipe()
	tc := NewTelnetConn(server)
	go func() {
		client.Write(raw)
		client.Close()
	}()
	got, err := io.ReadAll(tc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	tc.Close()
	return got, tc
}

func TestReadStripsTelnetCommands(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want []byte
	}{
		{"plain", []byte("help\r"), []byte("help\r")},
		{"negotiation", []byte{'a', IAC, WILL, OptSGA, 'b'}, []byte("ab")},
		{"escaped iac", []byte{'x', IAC, IAC, 'y'}, []byte{'x', 0xFF, 'y'}},
		{"cr nul", []byte{'l', 's', '\r', 0, 'x'}, []byte("ls\rx")},
		{"cr lf", []byte("ls\r\nx"), []byte("ls\rx")},
		{"bare lf kept", []byte("a\nb"), []byte("a\nb")},
		{"unknown command", []byte{'a', IAC, 241, 'b'}, []byte("ab")},
		{"subnegotiation", []byte{'a', IAC, SB, OptNAWS, 0, 100, 0, 40, IAC, SE, 'b'}, []byte("ab")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := readThrough(t, tt.raw)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNAWSResizes(t *testing.T) {
	raw := []byte{IAC, SB, OptNAWS, 0, 132, 0, 50, IAC, SE, 'k'}
	_, tc := readThrough(t, raw)
	if w, h := tc.WindowSize(); w != 132 || h != 50 {
		t.Errorf("WindowSize = %dx%d, want 132x50", w, h)
	}
	select {
	case msg := <-tc.Resize():
		if msg.Width != 132 || msg.Height != 50 {
			t.Errorf("resize = %+v", msg)
		}
	default:
		t.Error("no resize delivered")
	}
}

func TestNAWSRejectsInvalid(t *testing.T) {
	_, tc := readThrough(t, []byte{IAC, SB, OptNAWS, 0, 0, 0, 0, IAC, SE})
	if w, h := tc.WindowSize(); w != defaultWidth || h != defaultHeight {
		t.Errorf("WindowSize = %dx%d, want defaults", w, h)
	}
}

func TestWriteEscapesIAC(t *testing.T) {
	server, client := net.Pipe()
	tc := NewTelnetConn(server)
	defer tc.Close()

	got := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 16)
		n, _ := io.ReadAtLeast(client, buf, 4)
		got <- buf[:n]
	}()
	n, err := tc.Write([]byte{'a', 0xFF, 'b'})
	if err != nil || n != 3 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if b := <-got; !bytes.Equal(b, []byte{'a', IAC, IAC, 'b'}) {
		t.Errorf("wire bytes = % x", b)
	}
}

func TestNegotiateTermType(t *testing.T) {
	server, client := net.Pipe()
	tc := NewTelnetConn(server)
	defer tc.Close()
	defer client.Close()

	go func() {
		buf := make([]byte, 18)
		io.ReadFull(client, buf)
		client.Write([]byte{
			IAC, WILL, OptTermType, IAC, WILL, OptNAWS,
			IAC, SB, OptNAWS, 0, 100, 0, 30, IAC, SE,
		})
		req := make([]byte, 6)
		io.ReadFull(client, req)
		client.Write(append(append([]byte{IAC, SB, OptTermType, TermTypeIs}, "SyncTERM"...), IAC, SE))
	}()

	if err := tc.Negotiate(); err != nil {
		t.Fatal(err)
	}
	if got := tc.TermType(); got != "syncterm" {
		t.Errorf("TermType = %q", got)
	}
	w, h, method := tc.DetectTerminalSize(100 * time.Millisecond)
	if w != 100 || h != 30 || method != "NAWS" {
		t.Errorf("DetectTerminalSize = %dx%d via %s", w, h, method)
	}
}

func TestDetectTerminalSizeViaCPR(t *testing.T) {
	server, client := net.Pipe()
	tc := NewTelnetConn(server)
	defer tc.Close()
	defer client.Close()

	go func() {
		buf := make([]byte, 64)
		var seen []byte
		for !bytes.Contains(seen, []byte("\x1b[6n")) {
			n, err := client.Read(buf)
			if err != nil {
				return
			}
			seen = append(seen, buf[:n]...)
		}
		client.Write([]byte("\x1b[25;80R"))
		io.Copy(io.Discard, client)
	}()

	w, h, method := tc.DetectTerminalSize(2 * time.Second)
	if w != 80 || h != 25 || method != "ANSI" {
		t.Errorf("DetectTerminalSize = %dx%d via %s", w, h, method)
	}
}

type echoRunner struct{}

func (echoRunner) Run(ctx context.Context, c node.Conn) error {
	fmt.Fprintf(c.Out, "term=%s size=%dx%d\r\n", c.Term, c.Width, c.Height)
	return nil
}

func TestServerRunsNode(t *testing.T) {
	srv, err := NewServer(Config{Runner: echoRunner{}})
	if err != nil {
		t.Fatal(err)
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go srv.Serve(l)
	defer srv.Close()

	conn, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	out, _ := io.ReadAll(conn)
	if !strings.Contains(string(out), "term=ansi size=80x24") {
		t.Errorf("output = %q", out)
	}
}

func TestNewServerRequiresRunner(t *testing.T) {
	if _, err := NewServer(Config{Port: 23}); err == nil {
		t.Error("NewServer accepted a config without a runner")
	}
}
