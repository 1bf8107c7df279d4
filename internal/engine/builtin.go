package engine

import (
	"strconv"
	"strings"

	"github.com/stlalpha/tecnoter/internal/ansi"
	"github.com/stlalpha/tecnoter/internal/bbs"
	"github.com/stlalpha/tecnoter/internal/scrollback"
	"github.com/stlalpha/tecnoter/internal/session"
)

// ValidUsers are the accounts the login prompt accepts.
var ValidUsers = []string{"guest", "bbs", "admin"}

var bootLines = []string{
	"TECNOTER.IO(TM) CORE SYSTEM",
	"",
	"LOADING SYSTEM MODULES...",
	"NET_STACK: TCP/IP v6 READY",
	"SSH_DAEMON: LISTENING ON PORT 22",
	"HTTP_DAEMON: READY",
	"",
	"CONNECTING TO TECNOTER NETWORK...",
	"CARRIER 14400 / ARQ / V.32bis",
	"CONNECT 14400/REL - CD 1",
	"PROTOCOL: LAP-M",
	"COMPRESSION: V.42bis",
	"",
	"*** WELCOME TO THE TECNOTER.IO NODE ***",
	"",
}

// BootLines returns the scripted boot banner.
func BootLines() []string {
	return append([]string(nil), bootLines...)
}

// Builtin is the Go shell engine. It handles the full command set.
type Builtin struct {
	env Env
}

func NewBuiltin(env Env) *Builtin {
	return &Builtin{env: env}
}

func (b *Builtin) Name() string { return "builtin" }

// Process never returns an error; unknown input is declined.
func (b *Builtin) Process(snap session.Snapshot, line string) (Outcome, error) {
	switch snap.Mode {
	case session.ModeBbsPause:
		return b.resume(snap, line), nil
	case session.ModePassword:
		return handled(scrollback.Text("********"), scrollback.Text("Authentication successful.")).
			with(session.Patch{Mode: session.Ptr(session.ModePrompt), Authenticated: session.Ptr(true)}), nil
	case session.ModeMail:
		return handled(scrollback.Text("Mail sent.")).
			with(session.Patch{Mode: session.Ptr(session.ModePrompt), MailRecipient: session.Ptr("")}), nil
	case session.ModeMessage:
		return handled(scrollback.Text("Message sent.")).
			with(session.Patch{Mode: session.Ptr(session.ModePrompt)}), nil
	case session.ModeBbsMailPrompt:
		return b.mailRecipient(snap, line), nil
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return declined(), nil
	}
	word := strings.ToLower(fields[0])

	if strings.HasPrefix(word, "_") {
		return b.internal(snap, word, fields[1:], line), nil
	}

	switch snap.Mode {
	case session.ModeLogin:
		return b.login(fields[0]), nil
	case session.ModeUninitialized, session.ModeBoot, session.ModeAuthenticating:
		return declined(), nil
	}

	if snap.Mode.IsBBS() {
		if out, ok := b.bbsKey(snap, word); ok {
			return out, nil
		}
	}
	return b.shell(snap, word, fields[1:]), nil
}

func (b *Builtin) internal(snap session.Snapshot, word string, args []string, raw string) Outcome {
	switch word {
	case "_boot":
		lines := make([]scrollback.Line, len(bootLines))
		for i, l := range bootLines {
			lines[i] = scrollback.Text(l)
		}
		return handled(lines...).with(session.Patch{Mode: session.Ptr(session.ModeBoot)})
	case "_start_login":
		return handled().with(session.Patch{Mode: session.Ptr(session.ModeLogin)})
	case "_login":
		user := ""
		if len(args) > 0 {
			user = args[0]
		}
		return b.login(user)
	case "_read_internal":
		if len(args) == 0 {
			return handled()
		}
		for _, p := range snap.Posts {
			if p.Slug == args[0] {
				return handled(
					scrollback.Styled(ansi.EscapePipes("Reading: "+strings.ToUpper(p.Title)), scrollback.KindTitle),
					scrollback.Styled(strings.Repeat("-", 40), scrollback.KindBorder),
				)
			}
		}
		return handled()
	case "_suggest":
		text := strings.TrimPrefix(raw, "_suggest ")
		if text == raw {
			text = ""
		}
		return handled(scrollback.Instruction(Suggest(snap, text)))
	case "_autocomplete":
		text := strings.TrimPrefix(raw, "_autocomplete ")
		if text == raw {
			text = ""
		}
		return handled(scrollback.Instruction(strings.Join(Completions(snap, text), " ")))
	}
	return declined()
}

func (b *Builtin) login(raw string) Outcome {
	user := strings.ToLower(strings.TrimSpace(raw))
	valid := false
	for _, u := range ValidUsers {
		if u == user {
			valid = true
		}
	}
	if !valid {
		return handled(scrollback.Text("Login incorrect.")).
			with(session.Patch{Mode: session.Ptr(session.ModeLogin)})
	}
	p := session.Patch{CurrentUser: session.Ptr(user)}
	if user == "admin" {
		p.Mode = session.Ptr(session.ModePassword)
		return handled().with(p)
	}
	p.Mode = session.Ptr(session.ModeAuthenticating)
	p.Authenticated = session.Ptr(true)
	return handled(scrollback.Text("\n--- ACCESS GRANTED ---")).with(p)
}

func (b *Builtin) mailRecipient(snap session.Snapshot, line string) Outcome {
	rcpt := strings.TrimSpace(line)
	if rcpt == "" {
		return b.mainMenu(snap)
	}
	return handled().with(session.Patch{
		Mode:          session.Ptr(session.ModeMail),
		MailRecipient: session.Ptr(rcpt),
	})
}

// resume leaves the pause gate. A BBS hotkey typed at the gate acts in
// the restored mode; anything else redraws the screen paused from.
func (b *Builtin) resume(snap session.Snapshot, line string) Outcome {
	ret := snap.ReturnState
	if ret == session.ModeBbsPause || ret == session.ModeUninitialized {
		ret = session.ModePrompt
	}
	snap.Mode = ret
	patch := session.Patch{Mode: session.Ptr(ret)}

	key := strings.ToLower(strings.TrimSpace(line))
	if ret.IsBBS() && len(key) == 1 && strings.Contains(HotKeys, key) {
		if out, ok := b.bbsKey(snap, key); ok {
			return Outcome{Handled: true, Lines: out.Lines, Patch: patch.Merge(out.Patch)}
		}
	}

	switch ret {
	case session.ModeBbsMain:
		return b.mainMenu(snap)
	case session.ModeBbsPosts:
		return b.postList(snap)
	case session.ModeBbsCategories:
		return handled(append([]scrollback.Line{scrollback.Clear()}, bbs.CategoryList(snap.Posts)...)...).with(patch)
	}
	return handled().with(patch)
}

// HotKeys act on a single keypress in BBS modes.
const HotKeys = "qmnphrwxalesubfct?"

func (b *Builtin) pause(snap session.Snapshot, lines ...scrollback.Line) Outcome {
	ret := session.ModePrompt
	if snap.Mode.IsBBS() {
		ret = session.ModeBbsMain
	}
	return handled(lines...).with(session.Patch{
		Mode:        session.Ptr(session.ModeBbsPause),
		ReturnState: session.Ptr(ret),
	})
}

func (b *Builtin) screen(snap session.Snapshot, lines []scrollback.Line) Outcome {
	return b.pause(snap, append([]scrollback.Line{scrollback.Clear()}, lines...)...)
}

func (b *Builtin) mainMenu(snap session.Snapshot) Outcome {
	lines := append([]scrollback.Line{scrollback.Clear()}, bbs.MainMenu(snap.Pages)...)
	return handled(lines...).with(session.Patch{Mode: session.Ptr(session.ModeBbsMain)})
}

func (b *Builtin) postList(snap session.Snapshot) Outcome {
	lines := append([]scrollback.Line{scrollback.Clear()}, bbs.PostList(snap.Posts, snap.Cwd)...)
	return handled(lines...).with(session.Patch{Mode: session.Ptr(session.ModeBbsPosts)})
}

func (b *Builtin) categories(snap session.Snapshot) Outcome {
	lines := append([]scrollback.Line{scrollback.Clear()}, bbs.CategoryList(snap.Posts)...)
	return handled(lines...).with(session.Patch{Mode: session.Ptr(session.ModeBbsCategories)})
}

func (b *Builtin) stats(snap session.Snapshot) Outcome {
	return b.screen(snap, bbs.Stats(bbs.StatsInput{
		Info:      snap.SystemInfo,
		Version:   snap.Version,
		Stats:     b.env.board().Stats,
		LiveNodes: len(b.env.nodes()),
	}))
}

func (b *Builtin) users(snap session.Snapshot) Outcome {
	return b.screen(snap, bbs.UserList(b.env.nodes(), b.env.board().Roster))
}

// readPost starts loading post i; the caller renders it when the fetch
// completes.
func (b *Builtin) readPost(i int, snap session.Snapshot) Outcome {
	if i < 0 || i >= len(snap.Posts) {
		return handled(scrollback.Text("post not found"))
	}
	return handled(scrollback.Instruction(InstrFetchPost + snap.Posts[i].Slug)).with(session.Patch{
		Mode:             session.Ptr(session.ModeBbsRead),
		CurrentPostIndex: session.Ptr(i),
	})
}

func (b *Builtin) bbsNumber(snap session.Snapshot, num int) (Outcome, bool) {
	switch snap.Mode {
	case session.ModeBbsMain:
		if num <= len(snap.Pages) {
			out := b.cat(snap, []string{snap.Pages[num-1].Slug})
			return out.with(session.Patch{
				Mode:        session.Ptr(session.ModeBbsPause),
				ReturnState: session.Ptr(session.ModeBbsMain),
			}), true
		}
	case session.ModeBbsPosts, session.ModeBbsRead:
		idx := bbs.Filter(snap.Posts, snap.Cwd)
		if num <= len(idx) {
			return b.readPost(idx[num-1], snap), true
		}
	case session.ModeBbsCategories:
		cats := bbs.Categories(snap.Posts)
		if num <= len(cats) {
			snap.Cwd = "/categories/" + cats[num-1]
			return b.postList(snap).with(session.Patch{Cwd: session.Ptr(snap.Cwd)}), true
		}
	}
	return Outcome{}, false
}

func (b *Builtin) bbsKey(snap session.Snapshot, key string) (Outcome, bool) {
	if num, err := strconv.Atoi(key); err == nil && num > 0 {
		if out, ok := b.bbsNumber(snap, num); ok {
			return out, true
		}
	}

	switch key {
	case "q":
		if snap.CurrentUser == "bbs" {
			return handled(scrollback.Instruction(InstrLogout)), true
		}
		return handled(scrollback.Text("\nReturned to system shell.")).
			with(session.Patch{Mode: session.Ptr(session.ModePrompt)}), true
	case "m":
		return b.mainMenu(snap), true
	case "r":
		if snap.Mode == session.ModeBbsMain && (strings.HasPrefix(snap.Cwd, "/categories/") || strings.HasPrefix(snap.Cwd, "/tags/")) {
			snap.Cwd = "/"
			return b.postList(snap).with(session.Patch{Cwd: session.Ptr("/")}), true
		}
		return b.postList(snap), true
	case "l":
		return b.postList(snap), true
	case "c":
		return b.categories(snap), true
	case "s":
		return b.stats(snap), true
	case "u":
		return b.users(snap), true
	case "?", "h", "help":
		return handled(bbs.Help()...), true
	case "b":
		return b.screen(snap, bbs.Bulletins(b.env.board().Bulletins)), true
	case "f":
		return b.screen(snap, bbs.FileLibrary(b.env.board().FileAreas)), true
	case "w", "whoami":
		return b.screen(snap, bbs.Whoami(snap.CurrentUser, snap.NodeName)), true
	case "e":
		return handled(scrollback.Text("\nRecipient address: ")).
			with(session.Patch{Mode: session.Ptr(session.ModeBbsMailPrompt)}), true
	case "x":
		return b.matrix(snap, "binary"), true
	case "a":
		return b.ansiArt(snap), true
	case "t":
		return b.fortune(snap), true
	case "n", "p":
		if snap.Mode != session.ModeBbsPosts && snap.Mode != session.ModeBbsRead {
			return Outcome{}, false
		}
		n := len(snap.Posts)
		if n == 0 {
			return handled(scrollback.Text("No posts found.")), true
		}
		cur := snap.CurrentPostIndex
		var next int
		if key == "n" {
			next = session.NextPost(cur, n)
		} else {
			if cur < 0 {
				cur = 0
			}
			next = session.PrevPost(cur, n)
		}
		return b.readPost(next, snap), true
	}
	return Outcome{}, false
}
