package engine

import (
	"strings"

	"github.com/stlalpha/tecnoter/internal/scrollback"
	"github.com/stlalpha/tecnoter/internal/session"
)

const offlineHelp = "OFFLINE MODE - uplink lost. Local commands:\n" +
	"  bbs        - Launch the BBS interface\n" +
	"  clear      - Clear terminal screen\n" +
	"  matrix     - Experience the matrix\n" +
	"  ping       - Check the local node\n" +
	"  logout     - End the session\n" +
	"  exit       - Terminate session"

var offlineCommands = map[Command]bool{
	CmdBBS:    true,
	CmdClear:  true,
	CmdMatrix: true,
	CmdExit:   true,
	CmdLogout: true,
	CmdPing:   true,
}

// Offline is the fallback engine used when the primary engine errors.
// It serves the login flow, the BBS screens and a handful of local
// commands, and declines the rest.
type Offline struct {
	b *Builtin
}

func NewOffline(env Env) *Offline {
	return &Offline{b: NewBuiltin(env)}
}

func (o *Offline) Name() string { return "offline" }

func (o *Offline) Process(snap session.Snapshot, line string) (Outcome, error) {
	switch snap.Mode {
	case session.ModeBbsPause, session.ModePassword, session.ModeMail,
		session.ModeMessage, session.ModeBbsMailPrompt, session.ModeLogin:
		return o.b.Process(snap, line)
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return declined(), nil
	}
	word := strings.ToLower(fields[0])
	if strings.HasPrefix(word, "_") {
		return o.b.Process(snap, line)
	}
	if snap.Mode.IsBBS() {
		if out, ok := o.b.bbsKey(snap, word); ok {
			return out, nil
		}
	}

	cmd := ParseCommand(word)
	if cmd == CmdHelp {
		return handled(scrollback.Text(offlineHelp)), nil
	}
	if !offlineCommands[cmd] {
		return declined(), nil
	}
	return o.b.shell(snap, word, fields[1:]), nil
}
