package engine

import (
	"fmt"
	"math/rand/v2"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/stlalpha/tecnoter/internal/ansi"
	"github.com/stlalpha/tecnoter/internal/bbs"
	"github.com/stlalpha/tecnoter/internal/content"
	"github.com/stlalpha/tecnoter/internal/scrollback"
	"github.com/stlalpha/tecnoter/internal/session"
)

var helpText = strings.Join([]string{
	"Available commands (type 'man [cmd]' for deep info):",
	"  help       - Show available commands",
	"  ls [-l]    - List directory contents",
	"  cd [path]  - Change directory",
	"  cat [file] - Show file content",
	"  whoami     - Display system user info",
	"  bbs        - Launch the BBS interface",
	"  stats      - Display system statistics",
	"  bulletins  - Read the system bulletins",
	"  files      - Browse the file library",
	"  uptime     - System availability timer",
	"  fortune    - Random node wisdom",
	"  cowsay     - Digital mascot ASCII art",
	"  weather    - Simulated weather report",
	"  top        - Display system processes",
	"  who        - List online users",
	"  social     - Social media connections",
	"  curl [url] - Download content from URL",
	"  mail [user]- Send mail to another user",
	"  msg        - Leave a message for the sysop",
	"  matrix     - Experience the matrix",
	"  ansi       - Display random ANSI art",
	"  cal        - Display current month calendar",
	"  date       - Show system date",
	"  mode [hub] - Switch between terminal and hub",
	"  clear      - Clear terminal screen",
	"  exit       - Terminate session",
}, "\n")

const cowText = "  ^__^\n  (oo)\\_______\n  (__)\\       )\\/\\\n      ||----w |\n      ||     ||"

// MatrixCharsets maps matrix modes to the characters they draw from.
var MatrixCharsets = map[string]string{
	"binary":   "01",
	"ascii":    "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789$#@%&",
	"hex":      "0123456789ABCDEF",
	"tecnoter": "░▒▓█",
}

func text(s string) scrollback.Line {
	return scrollback.Text(s)
}

// userText escapes pipes in s so it prints literally.
func userText(s string) scrollback.Line {
	return scrollback.Text(ansi.EscapePipes(s))
}

func (b *Builtin) shell(snap session.Snapshot, word string, args []string) Outcome {
	switch ParseCommand(word) {
	case CmdPing:
		return handled(text("PONG"))
	case CmdHelp:
		return handled(text(helpText))
	case CmdLs:
		return handled(userText(b.ls(snap, args)))
	case CmdCd:
		return b.cd(snap, args)
	case CmdCat:
		return b.cat(snap, args)
	case CmdWhoami:
		if snap.Mode.IsBBS() {
			return b.screen(snap, bbs.Whoami(snap.CurrentUser, snap.NodeName))
		}
		status := "AUTHENTICATED"
		if !snap.Authenticated {
			status = "ANONYMOUS"
		}
		return handled(userText(fmt.Sprintf("User: %s\nHost: %s\nShell: ttsh (Tecnoter Shell)\nStatus: %s", snap.CurrentUser, snap.NodeName, status)))
	case CmdFortune:
		return b.fortune(snap)
	case CmdCowsay:
		return b.maybePause(snap, userText(cowText))
	case CmdUptime:
		return b.maybePause(snap, text(fmt.Sprintf("up %s, %d users, load average: %s", snap.SystemInfo.Uptime, b.userCount(), snap.SystemInfo.LoadAverage)))
	case CmdWeather:
		return b.maybePause(snap, userText(strings.Join(b.env.board().Weather, "\n")))
	case CmdBBS:
		return b.bbsCommand(snap, args)
	case CmdMail:
		if len(args) == 0 {
			return handled(text("Usage: mail [username]"))
		}
		return handled().with(session.Patch{
			Mode:          session.Ptr(session.ModeMail),
			MailRecipient: session.Ptr(args[0]),
		})
	case CmdMessage:
		return handled().with(session.Patch{Mode: session.Ptr(session.ModeMessage)})
	case CmdClear:
		return handled(scrollback.Clear())
	case CmdMatrix:
		mode := "binary"
		if len(args) > 0 {
			mode = strings.ToLower(args[0])
		}
		return b.matrix(snap, mode)
	case CmdAnsi:
		return b.ansiArt(snap)
	case CmdExit:
		return handled(scrollback.Instruction(InstrExit))
	case CmdLogout:
		return handled(scrollback.Instruction(InstrLogout))
	case CmdMan:
		return handled(userText(manPage(args)))
	case CmdTop:
		return handled(text(b.top()))
	case CmdWho:
		return handled(userText(b.who()))
	case CmdDate:
		return handled(text(snap.Now.Format("Mon Jan 02 2006 15:04:05 GMT-0700 (MST)")))
	case CmdMotd:
		return handled(userText(motd(snap)))
	case CmdSocial:
		return b.social(snap, args)
	case CmdCurl:
		if len(args) == 0 {
			return handled(text("Usage: curl [url]"))
		}
		return handled(text("Establishing uplink..."), scrollback.Instruction(InstrCurl+args[0]))
	case CmdStats:
		return b.stats(snap)
	case CmdBulletins:
		return b.screen(snap, bbs.Bulletins(b.env.board().Bulletins))
	case CmdFiles:
		return b.screen(snap, bbs.FileLibrary(b.env.board().FileAreas))
	case CmdCal:
		return b.maybePause(snap, text(calendar(snap.Now)))
	case CmdMode:
		return b.systemMode(snap, args)
	}
	return declined()
}

// maybePause prints lines and, inside the BBS, holds them behind the
// pause gate.
func (b *Builtin) maybePause(snap session.Snapshot, lines ...scrollback.Line) Outcome {
	if snap.Mode.IsBBS() {
		return b.pause(snap, lines...)
	}
	return handled(lines...)
}

func (b *Builtin) userCount() int {
	if n := len(b.env.nodes()); n > 0 {
		return n
	}
	return b.env.board().Stats.ActiveNodes
}

func (b *Builtin) fortune(snap session.Snapshot) Outcome {
	pool := snap.Fortunes
	if len(pool) == 0 {
		pool = b.env.board().Fortunes
	}
	if len(pool) == 0 {
		return b.maybePause(snap, text("Uplink silent (no fortunes loaded)."))
	}
	return b.maybePause(snap, userText("\nNODE WISDOM: "+pool[rand.IntN(len(pool))]))
}

func (b *Builtin) matrix(snap session.Snapshot, mode string) Outcome {
	if _, ok := MatrixCharsets[mode]; !ok {
		mode = "binary"
	}
	out := handled(scrollback.Clear(), scrollback.Instruction(InstrMatrix+mode))
	if snap.Mode.IsBBS() {
		out = out.with(session.Patch{
			Mode:        session.Ptr(session.ModeBbsPause),
			ReturnState: session.Ptr(session.ModeBbsMain),
		})
	}
	return out
}

func (b *Builtin) ansiArt(snap session.Snapshot) Outcome {
	if !snap.Mode.IsBBS() {
		return handled(scrollback.Instruction(InstrAnsi))
	}
	return b.pause(snap, scrollback.Clear(), scrollback.Instruction(InstrAnsi))
}

func (b *Builtin) bbsCommand(snap session.Snapshot, args []string) Outcome {
	sub := ""
	if len(args) > 0 {
		sub = strings.ToLower(args[0])
	}
	// Screens reached from the shell still return to the BBS menu.
	snap.Mode = session.ModeBbsMain
	switch sub {
	case "r", "l":
		return b.postList(snap)
	case "c":
		return b.categories(snap)
	case "s":
		return b.stats(snap)
	case "u":
		return b.users(snap)
	}
	return b.mainMenu(snap)
}

func (b *Builtin) systemMode(snap session.Snapshot, args []string) Outcome {
	if len(args) == 0 {
		return handled(text("System mode: " + snap.SystemMode.String()))
	}
	m, ok := session.ParseSystemMode(args[0])
	if !ok {
		return handled(text("Usage: mode [hub|terminal]"))
	}
	return handled(text("Switching to " + m.String() + " mode...")).
		with(session.Patch{SystemMode: session.Ptr(m)})
}

func (b *Builtin) cd(snap session.Snapshot, args []string) Outcome {
	if len(args) == 0 {
		return handled().with(session.Patch{Cwd: session.Ptr("/")})
	}
	target := ResolvePath(snap.Cwd, args[0])
	if !IsDir(snap, target) {
		return handled(userText("cd: no such directory: " + args[0]))
	}
	return handled().with(session.Patch{Cwd: session.Ptr(target)})
}

// FindContent looks up a page or post by the last segment of a path or by
// the raw name. Pages win over posts.
func FindContent(snap session.Snapshot, name string) (content.Item, bool) {
	resolved := ResolvePath(snap.Cwd, name)
	slug := resolved[strings.LastIndex(resolved, "/")+1:]
	match := func(it content.Item) bool { return it.Slug == slug || it.Slug == name }
	for _, p := range snap.Pages {
		if match(p) {
			return p, true
		}
	}
	for _, p := range snap.Posts {
		if match(p) {
			return p, true
		}
	}
	return content.Item{}, false
}

func (b *Builtin) cat(snap session.Snapshot, args []string) Outcome {
	if len(args) == 0 {
		return handled(text("Usage: cat [filename]"))
	}
	it, ok := FindContent(snap, args[0])
	if !ok {
		return handled(userText(fmt.Sprintf("cat: %s: No such file or directory", args[0])))
	}
	return handled(
		userText(fmt.Sprintf("Reading %s...", it.Title)),
		scrollback.Instruction(InstrFetchContent+it.Slug),
	)
}

var months = map[string]string{
	"01": "Jan", "02": "Feb", "03": "Mar", "04": "Apr", "05": "May", "06": "Jun",
	"07": "Jul", "08": "Aug", "09": "Sep", "10": "Oct", "11": "Nov", "12": "Dec",
}

// formatDate turns "2026-01-03" into "Jan 03 2026". Other input passes
// through.
func formatDate(s string) string {
	parts := strings.Split(s, "-")
	if len(parts) < 3 {
		return s
	}
	m, ok := months[parts[1]]
	if !ok {
		m = parts[1]
	}
	return fmt.Sprintf("%s %s %s", m, parts[2], parts[0])
}

func (b *Builtin) ls(snap session.Snapshot, args []string) string {
	long := false
	target := snap.Cwd
	for _, a := range args {
		if a == "-l" {
			long = true
		} else if !strings.HasPrefix(a, "-") {
			target = ResolvePath(snap.Cwd, a)
		}
	}

	files, ok := ListDir(snap, target)
	if !ok {
		return fmt.Sprintf("ls: cannot access '%s': No such directory", target)
	}
	if !long {
		return strings.Join(files, "  ")
	}

	find := func(items []content.Item, slug string) (content.Item, bool) {
		for _, it := range items {
			if it.Slug == slug {
				return it, true
			}
		}
		return content.Item{}, false
	}
	tagSuffix := func(it content.Item) string {
		if len(it.Tags) == 0 {
			return ""
		}
		return " [" + strings.Join(it.Tags, ",") + "]"
	}

	var rows []string
	for _, f := range files {
		perm, size, date, extra := "-rw-r--r--", "1024", "2026-01-01", ""
		switch {
		case target == "/posts" || strings.HasPrefix(target, "/tags/") || strings.HasPrefix(target, "/categories/"):
			if p, ok := find(snap.Posts, f); ok {
				size, date, extra = "1228", p.Date, tagSuffix(p)
			} else if p, ok := find(snap.Pages, f); ok {
				date, extra = p.Date, tagSuffix(p)
			}
		case target == "/pages":
			if p, ok := find(snap.Pages, f); ok {
				date, extra = p.Date, tagSuffix(p)
			}
		case target == "/" || target == "/tags" || target == "/categories":
			perm, size = "drwxr-xr-x", "4096"
		}
		rows = append(rows, fmt.Sprintf("%s tecnoter staff %5s %s %s%s", perm, size, formatDate(date), f, extra))
	}
	return strings.Join(rows, "\n")
}

type manEntry struct {
	desc, usage, body string
}

var manual = map[string]manEntry{
	"help":      {"Show available commands", "help", "Displays a list of all commands recognized by the tecnoter.io shell."},
	"ls":        {"List directory contents", "ls [-l] [path]", "Lists files and subdirectories in the current or specified path."},
	"cd":        {"Change directory", "cd [path]", "Moves the shell to another directory of the node."},
	"cat":       {"Show file content", "cat [filename]", "Concatenate and print. Fetches a page or post from the uplink."},
	"bbs":       {"Launch the Bulletin Board System", "bbs", "Enters the main tecnoter.io interactive node."},
	"top":       {"Display system processes", "top", "Provides a dynamic real-time view of a running system."},
	"who":       {"List online users", "who", "Shows who is currently logged on to the tecnoter node."},
	"date":      {"Display system date and time", "date", "Displays the current node system time."},
	"motd":      {"Show Message of the Day", "motd", "Displays the system welcome message and node information."},
	"social":    {"Social media connections", "social [network]", "Displays connected social networks or opens the specified network in a new uplink."},
	"ansi":      {"Display random ANSI art", "ansi", "Fetches historical .ans files."},
	"whoami":    {"Display system user info", "whoami", "Identifies cryptographic session owner."},
	"stats":     {"Display system statistics", "stats", "Hardware telemetry."},
	"uptime":    {"System availability timer", "uptime", "Continuous operation timer."},
	"cal":       {"Display current month calendar", "cal", "Gregorian synchronization."},
	"mail":      {"Send mail to another user", "mail [username]", "Async messaging protocol."},
	"matrix":    {"Experience the matrix", "matrix [binary|ascii|hex|tecnoter]", "Buffer stress test."},
	"climate":   {"Weather station data", "climate", "Exterior node telemetry."},
	"weather":   {"Simulated weather report", "weather", "Exterior node telemetry."},
	"fortune":   {"Random node wisdom", "fortune", "UNIX fortune oracle."},
	"cowsay":    {"Digital cow mascot", "cowsay", "Legacy ASCII utility."},
	"curl":      {"Download content from URL", "curl [url]", "Fetches a remote document and prints the first 2000 characters."},
	"mode":      {"Switch display mode", "mode [hub|terminal]", "Toggles between the terminal and the low-tech hub index. F2 does the same."},
	"bulletins": {"Read the system bulletins", "bulletins", "Sysop announcements."},
	"files":     {"Browse the file library", "files", "Lists the file areas of the node."},
}

func manPage(args []string) string {
	if len(args) == 0 {
		return "Usage: man [command]. Try man help, man ls, man bbs."
	}
	e, ok := manual[strings.ToLower(args[0])]
	if !ok {
		return "No manual entry for " + args[0]
	}
	name := strings.ToLower(args[0])
	return fmt.Sprintf("NAME\n    %s - %s\n\nSYNOPSIS\n    %s\n\nDESCRIPTION\n    %s", name, e.desc, e.usage, e.body)
}

func motd(snap session.Snapshot) string {
	return fmt.Sprintf("SYSTEM SHELL READY\n"+
		"Authentication successful.\n"+
		"Last login: %s from 127.0.0.1\n\n"+
		"Welcome to tecnoter.io, %s!\n\n"+
		"[ SUGGESTION: %s ]\n\n"+
		"Type 'cat bio' to read the company biology.\n"+
		"Type 'help' to see available commands. Use Ctrl+D or 'logout' to exit.\n",
		snap.SystemInfo.CurrentDate, snap.CurrentUser, snap.SystemInfo.MotdSuggestion)
}

func (b *Builtin) social(snap session.Snapshot, args []string) Outcome {
	if len(args) == 0 {
		var sb strings.Builder
		sb.WriteString("Connected Social Networks:\n")
		if len(snap.Socials) == 0 {
			sb.WriteString(" No social networks configured.")
		} else {
			for _, s := range snap.Socials {
				fmt.Fprintf(&sb, " - %s: %s\n", s.Name, s.URL)
			}
			sb.WriteString("\nUsage: social [network] to open in a new link.")
		}
		return handled(userText(sb.String()))
	}
	network := strings.ToLower(args[0])
	for _, s := range snap.Socials {
		if strings.ToLower(s.Name) == network {
			return handled(
				userText(fmt.Sprintf("Opening uplink to %s...", s.URL)),
				scrollback.Instruction(InstrOpenURL+s.URL),
			)
		}
	}
	return handled(userText("Social network not found: " + network))
}

func (b *Builtin) top() string {
	h := b.env.host()
	total, running := 42, 1
	if h.ProcsTotal > 0 {
		total, running = h.ProcsTotal, h.ProcsActive
	}
	memTotal, memUsed := 128.0, 64.2
	if h.MemTotal > 0 {
		memTotal = float64(h.MemTotal) / (1 << 20)
		memUsed = float64(h.MemUsed) / (1 << 20)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Tasks: %3d total, %3d running, %3d sleeping,   0 stopped,   0 zombie\n", total, running, total-running)
	sb.WriteString("%Cpu(s):  4.2 us,  1.0 sy,  0.0 ni, 94.8 id,  0.0 wa,  0.0 hi,  0.0 si,  0.0 st\n")
	fmt.Fprintf(&sb, "MiB Mem : %8.1f total, %8.1f free, %8.1f used\n\n", memTotal, memTotal-memUsed, memUsed)
	sb.WriteString("  PID USER      PR  NI    VIRT    RES    SHR S  %CPU  %MEM     TIME+ COMMAND\n")
	sb.WriteString("    1 root      20   0    4242    128     64 S   0.0   0.1   0:01.42 init\n")
	sb.WriteString("   42 tecnoter  20   0   12842   4242   2048 R   4.2   3.3   0:42.12 tecnoterd\n")
	nodes := b.env.nodes()
	if len(nodes) == 0 {
		sb.WriteString("   88 guest     20   0    2048    512    256 S   0.0   0.4   0:00.12 ttsh")
		return sb.String()
	}
	for i, n := range nodes {
		fmt.Fprintf(&sb, "%5d %-9s 20   0    2048    512    256 S   0.0   0.4   0:00.%02d ttsh", 100+n.Node, ansi.TruncateVisible(n.User, 9), i%100)
		if i < len(nodes)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func (b *Builtin) who() string {
	nodes := b.env.nodes()
	var sb strings.Builder
	sb.WriteString("NAME     LINE         TIME             COMMENT\n")
	if len(nodes) == 0 {
		sb.WriteString("guest    tty1         2026-01-04 10:00 (127.0.0.1)\n")
		sb.WriteString("admin    pts/0        2026-01-04 09:42 (remote.uplink)")
		return sb.String()
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Node < nodes[j].Node })
	for i, n := range nodes {
		host := n.Remote
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		line := fmt.Sprintf("pts/%d", n.Node)
		fmt.Fprintf(&sb, "%-8s %-12s %s (%s)", ansi.TruncateVisible(n.User, 8), line, n.Connected.Format("2006-01-02 15:04"), host)
		if i < len(nodes)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// calendar renders the month containing now like cal(1).
func calendar(now time.Time) string {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	days := first.AddDate(0, 1, -1).Day()

	title := fmt.Sprintf("%s %d", now.Month().String(), now.Year())
	pad := (20 - len(title)) / 2
	var sb strings.Builder
	sb.WriteString("\n" + strings.Repeat(" ", pad) + title + "\n")
	sb.WriteString("Su Mo Tu We Th Fr Sa\n")

	col := int(first.Weekday())
	sb.WriteString(strings.Repeat("   ", col))
	for d := 1; d <= days; d++ {
		fmt.Fprintf(&sb, "%2d", d)
		col++
		if col == 7 && d < days {
			sb.WriteByte('\n')
			col = 0
		} else if d < days {
			sb.WriteByte(' ')
		}
	}
	sb.WriteByte('\n')
	return sb.String()
}
