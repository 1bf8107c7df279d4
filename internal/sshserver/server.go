// Package sshserver serves tecnoter nodes over SSH. It wraps gliderlabs/ssh
// (which itself wraps golang.org/x/crypto/ssh) and adds legacy algorithm
// support for retro terminal clients (SyncTERM, NetRunner). Callers log in
// at the node's own login prompt, so the SSH layer accepts any user.
package sshserver

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gliderlabs/ssh"
	gossh "golang.org/x/crypto/ssh"

	"github.com/stlalpha/tecnoter/internal/node"
)

// Runner serves one node connection.
type Runner interface {
	Run(ctx context.Context, c node.Conn) error
}

// Config holds SSH server configuration.
type Config struct {
	HostKeyPath         string
	Host                string
	Port                int
	LegacySSHAlgorithms bool
	Version             string // SSH server banner version (default: "tecnoter")
	Runner              Runner
}

// Server wraps a gliderlabs/ssh server.
type Server struct {
	inner  *ssh.Server
	runner Runner
}

// hostKeyBits is the size of a generated RSA host key. RSA keeps the
// ssh-rsa algorithm available to old clients.
const hostKeyBits = 3072

// EnsureHostKey generates an RSA host key at path if none exists.
func EnsureHostKey(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat host key %s: %w", path, err)
	}
	log.Printf("INFO: Generating SSH host key at %s", path)
	key, err := rsa.GenerateKey(rand.Reader, hostKeyBits)
	if err != nil {
		return fmt.Errorf("generate host key: %w", err)
	}
	block, err := gossh.MarshalPrivateKey(key, "tecnoter host key")
	if err != nil {
		return fmt.Errorf("marshal host key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create host key directory: %w", err)
	}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		return fmt.Errorf("write host key %s: %w", path, err)
	}
	return nil
}

// NewServer creates and configures a new SSH server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Runner == nil {
		return nil, errors.New("sshserver: no runner configured")
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	// Read host key
	keyBytes, err := os.ReadFile(cfg.HostKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read host key %s: %w", cfg.HostKeyPath, err)
	}
	signer, err := gossh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("parse host key: %w", err)
	}

	version := cfg.Version
	if version == "" {
		version = "tecnoter"
	}

	s := &Server{runner: cfg.Runner}
	srv := &ssh.Server{
		Addr:        addr,
		Handler:     s.handle,
		HostSigners: []ssh.Signer{signer},
		Version:     version,
		ConnectionFailedCallback: func(conn net.Conn, err error) {
			log.Printf("WARN: SSH connection failed from %s: %v", conn.RemoteAddr(), err)
		},
	}

	// Configure algorithm suites via ServerConfigCallback.
	// When LegacySSHAlgorithms is enabled, include older algorithms
	// (diffie-hellman-group1-sha1, 3des-cbc, hmac-sha1, ssh-rsa)
	// required by retro BBS clients.
	legacy := cfg.LegacySSHAlgorithms
	srv.ServerConfigCallback = func(ctx ssh.Context) *gossh.ServerConfig {
		sc := &gossh.ServerConfig{}
		if legacy {
			sc.Config.KeyExchanges = []string{
				"curve25519-sha256",
				"curve25519-sha256@libssh.org",
				"ecdh-sha2-nistp256",
				"ecdh-sha2-nistp384",
				"ecdh-sha2-nistp521",
				"diffie-hellman-group14-sha256",
				"diffie-hellman-group16-sha512",
				"diffie-hellman-group14-sha1",
				"diffie-hellman-group1-sha1",
			}
			sc.Config.Ciphers = []string{
				"chacha20-poly1305@openssh.com",
				"aes128-gcm@openssh.com",
				"aes256-gcm@openssh.com",
				"aes128-ctr",
				"aes192-ctr",
				"aes256-ctr",
				"aes128-cbc",
				"aes256-cbc",
				"3des-cbc",
			}
			sc.Config.MACs = []string{
				"hmac-sha2-256-etm@openssh.com",
				"hmac-sha2-512-etm@openssh.com",
				"hmac-sha2-256",
				"hmac-sha2-512",
				"hmac-sha1",
			}
		}
		return sc
	}
	if legacy {
		log.Printf("INFO: SSH legacy algorithms enabled for retro BBS client compatibility")
	}

	s.inner = srv
	return s, nil
}

// DeepLink returns the post slug requested on the ssh command line
// ("ssh -t host '#my-post'"), or "".
func DeepLink(command []string) string {
	if len(command) == 0 {
		return ""
	}
	return strings.TrimPrefix(strings.TrimSpace(command[0]), "#")
}

func (s *Server) handle(sess ssh.Session) {
	ptyReq, winCh, isPty := sess.Pty()
	if !isPty {
		io.WriteString(sess, "tecnoter needs a terminal. Connect with: ssh -t\r\n")
		sess.Exit(1)
		return
	}

	ctx := sess.Context()
	resize := make(chan tea.WindowSizeMsg)
	go func() {
		for win := range winCh {
			select {
			case resize <- tea.WindowSizeMsg{Width: win.Width, Height: win.Height}:
			case <-ctx.Done():
				return
			}
		}
	}()

	err := s.runner.Run(ctx, node.Conn{
		In:        sess,
		Out:       sess,
		Remote:    sess.RemoteAddr().String(),
		Transport: "ssh",
		Term:      ptyReq.Term,
		Width:     ptyReq.Window.Width,
		Height:    ptyReq.Window.Height,
		DeepLink:  DeepLink(sess.Command()),
		Resize:    resize,
	})
	if err != nil {
		if !errors.Is(err, node.ErrNodesBusy) && !errors.Is(err, node.ErrTooManyConnections) {
			log.Printf("ERROR: SSH session from %s: %v", sess.RemoteAddr(), err)
		}
		sess.Exit(1)
		return
	}
	sess.Exit(0)
}

// ListenAndServe binds to the configured address and serves SSH connections.
// It blocks until the server is closed.
func (s *Server) ListenAndServe() error {
	log.Printf("INFO: SSH server listening on %s", s.inner.Addr)
	return closed(s.inner.ListenAndServe())
}

// Serve starts serving on an existing listener. Blocks until closed.
func (s *Server) Serve(l net.Listener) error {
	return closed(s.inner.Serve(l))
}

// closed maps the error returned after Close to nil.
func closed(err error) error {
	if errors.Is(err, ssh.ErrServerClosed) {
		return nil
	}
	return err
}

// Close shuts down the server and all active connections.
func (s *Server) Close() error {
	return s.inner.Close()
}
