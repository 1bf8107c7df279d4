package bbs

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/stlalpha/tecnoter/internal/ansi"
	"github.com/stlalpha/tecnoter/internal/config"
	"github.com/stlalpha/tecnoter/internal/content"
	"github.com/stlalpha/tecnoter/internal/scrollback"
	"github.com/stlalpha/tecnoter/internal/session"
)

const (
	PressAnyKey  = "Press any key to return..."
	ReadHint     = "\nPress any key to return to list or use hotkeys..."
	categoryRoot = "/categories/"
	tagRoot      = "/tags/"
)

var logoArt = []string{
	" ████████╗███████╗ ██████╗███╗   ██╗ ██████╗",
	" ╚══██╔══╝██╔════╝██╔════╝████╗  ██║██╔═══██╗",
	"    ██║   █████╗  ██║     ██╔██╗ ██║██║   ██║",
	"    ██║   ██╔══╝  ██║     ██║╚██╗██║██║   ██║",
	"    ██║   ███████╗╚██████╗██║ ╚████║╚██████╔╝",
	"    ╚═╝   ╚══════╝ ╚═════╝╚═╝  ╚═══╝ ╚═════╝",
}

var logoCow = []string{
	"  ^__^",
	"  (oo)\\_______",
	"  (__)\\       )\\/\\",
	"      ||----w |",
	"      ||     ||",
}

type menuEntry struct {
	label string
	cmd   string
}

func border(kind BorderKind) scrollback.Line {
	return scrollback.Styled(Border(kind), scrollback.KindBorder)
}

func row(text string, align Align, kind scrollback.Kind) scrollback.Line {
	return scrollback.Styled(Row(text, align), kind)
}

func pauseFooter(out []scrollback.Line) []scrollback.Line {
	return append(out,
		border(BorderMid),
		row(PressAnyKey, AlignCenter, scrollback.KindFooter),
		border(BorderBot),
	)
}

func titled(title string) []scrollback.Line {
	return []scrollback.Line{
		border(BorderTop),
		row(title, AlignCenter, scrollback.KindTitle),
		border(BorderMid),
	}
}

func clip(s string, n int) string {
	return ansi.EscapePipes(ansi.TruncateVisible(s, n))
}

// MainMenu renders the logo, the module list in two columns and the site
// pages in numbered pairs. Digits select pages.
func MainMenu(pages []content.Item) []scrollback.Line {
	out := []scrollback.Line{border(BorderTop)}
	for i, art := range logoArt {
		cow := ""
		if i < len(logoCow) {
			cow = logoCow[i]
		}
		out = append(out, row(ansi.EscapePipes(padRunes(art, 45)+cow), AlignCenter, scrollback.KindTitle))
	}
	out = append(out,
		row("--- tecnoter.io Bulletin Board System ---", AlignCenter, scrollback.KindHeader),
		border(BorderMid),
		row(" AVAILABLE MODULES ", AlignCenter, scrollback.KindHeader),
		border(BorderSep),
	)

	pairs := [][2]menuEntry{
		{{"[R]ead Posts", "r"}, {"[C]ategories", "c"}},
		{{"[B]ulletins & News", "b"}, {"[F]ile Library", "f"}},
		{{"[U]ser List", "u"}, {"[E]lectronic Mail", "e"}},
		{{"[W]ho am I?", "w"}, {"[T]ech Fortune", "t"}},
		{{"[X] Enter the Matrix", "x"}, {"[A]NSI Artwork", "a"}},
	}
	for i := 0; i < len(pages); i += 2 {
		var p [2]menuEntry
		p[0] = pageEntry(i, pages[i])
		if i+1 < len(pages) {
			p[1] = pageEntry(i+1, pages[i+1])
		}
		pairs = append(pairs, p)
	}
	pairs = append(pairs, [2]menuEntry{{"[S]ystem Stats", "s"}, {"[Q]uit Shell", "q"}})

	for _, p := range pairs {
		var text string
		if p[1].label != "" {
			text = fmt.Sprintf("%-34s │ %-34s", p[0].label, p[1].label)
		} else {
			text = fmt.Sprintf("%-34s │", p[0].label)
		}
		l := row(ansi.EscapePipes(text), AlignLeft, scrollback.KindRow).
			WithHotspots(scrollback.Hotspot{Label: ansi.EscapePipes(p[0].label), Cmd: p[0].cmd})
		if p[1].label != "" {
			l = l.WithHotspots(scrollback.Hotspot{Label: ansi.EscapePipes(p[1].label), Cmd: p[1].cmd})
		}
		out = append(out, l)
	}

	footer := "COMMANDS: [R]ead, [C]ategories, [Q]uit"
	if len(pages) > 0 {
		footer += fmt.Sprintf(", [1-%d] Pages", len(pages))
	}
	out = append(out,
		border(BorderMid),
		row(footer, AlignCenter, scrollback.KindFooter).WithHotspots(
			scrollback.Hotspot{Label: "[R]ead", Cmd: "r"},
			scrollback.Hotspot{Label: "[C]ategories", Cmd: "c"},
			scrollback.Hotspot{Label: "[Q]uit", Cmd: "q"},
		),
		border(BorderBot),
	)
	return out
}

func pageEntry(i int, p content.Item) menuEntry {
	label := fmt.Sprintf("[%d] %s", i+1, p.Title)
	return menuEntry{label: ansi.TruncateVisible(label, 34), cmd: strconv.Itoa(i + 1)}
}

func padRunes(s string, n int) string {
	if c := len([]rune(s)); c < n {
		return s + strings.Repeat(" ", n-c)
	}
	return s
}

// Filter returns the indices into posts that belong to the channel named
// by cwd: a category, a tag, or everything.
func Filter(posts []content.Item, cwd string) []int {
	var idx []int
	for i, p := range posts {
		switch {
		case strings.HasPrefix(cwd, categoryRoot):
			if !p.InCategory(cwd[len(categoryRoot):]) {
				continue
			}
		case strings.HasPrefix(cwd, tagRoot):
			if !p.HasTag(cwd[len(tagRoot):]) {
				continue
			}
		}
		idx = append(idx, i)
	}
	return idx
}

// ChannelTitle names the post list for cwd.
func ChannelTitle(cwd string) string {
	switch {
	case strings.HasPrefix(cwd, categoryRoot):
		return fmt.Sprintf(" CHANNEL: CATEGORY - %s ", strings.ToUpper(cwd[len(categoryRoot):]))
	case strings.HasPrefix(cwd, tagRoot):
		return fmt.Sprintf(" CHANNEL: TAG - %s ", strings.ToUpper(cwd[len(tagRoot):]))
	}
	return " CHANNEL 1: ALL POSTS "
}

func postColumn(id int, p content.Item) string {
	title := p.Title
	if r := []rune(title); len(r) > 18 {
		title = string(r[:15]) + "..."
	}
	return fmt.Sprintf("%2d %-8s %-18s", id, p.Date, title)
}

// PostList renders the posts of the cwd channel in two columns. IDs are
// positions in the filtered list, starting at 1.
func PostList(posts []content.Item, cwd string) []scrollback.Line {
	out := titled(ansi.EscapePipes(ChannelTitle(cwd)))

	idx := Filter(posts, cwd)
	if len(idx) == 0 {
		out = append(out, row("No posts found in this area.", AlignCenter, scrollback.KindRegular))
	} else {
		half := (len(idx) + 1) / 2
		for i := 0; i < half; i++ {
			left := postColumn(i+1, posts[idx[i]])
			hs := []scrollback.Hotspot{{Label: ansi.EscapePipes(strings.TrimRight(left, " ")), Cmd: strconv.Itoa(i + 1)}}
			text := left
			if j := i + half; j < len(idx) {
				right := postColumn(j+1, posts[idx[j]])
				text += "  │  " + right
				hs = append(hs, scrollback.Hotspot{Label: ansi.EscapePipes(strings.TrimRight(right, " ")), Cmd: strconv.Itoa(j + 1)})
			}
			out = append(out, row(ansi.EscapePipes(text), AlignLeft, scrollback.KindRow).WithHotspots(hs...))
		}
	}

	return append(out,
		border(BorderMid),
		row("COMMANDS: [M]ain Menu, [Q]uit, [C]ategories, [ID] to Read", AlignCenter, scrollback.KindFooter).WithHotspots(
			scrollback.Hotspot{Label: "[M]ain Menu", Cmd: "m"},
			scrollback.Hotspot{Label: "[Q]uit", Cmd: "q"},
			scrollback.Hotspot{Label: "[C]ategories", Cmd: "c"},
		),
		border(BorderBot),
	)
}

// ReadView renders a post body wrapped to the reader width, followed by
// the navigation footer and the pause hint.
func ReadView(title, body string) []scrollback.Line {
	out := titled(ansi.EscapePipes(fmt.Sprintf(" READING: %s ", strings.ToUpper(title))))
	for _, w := range Wrap(body, WrapWidth) {
		if w == "" {
			out = append(out, row(" ", AlignLeft, scrollback.KindRow))
			continue
		}
		out = append(out, row(ansi.EscapePipes(w), AlignLeft, scrollback.KindRow))
	}
	return append(out,
		border(BorderMid),
		row("[P]rev, [N]ext, [L]ist, [M]enu, [Q]uit", AlignCenter, scrollback.KindFooter).WithHotspots(
			scrollback.Hotspot{Label: "[P]rev", Cmd: "p"},
			scrollback.Hotspot{Label: "[N]ext", Cmd: "n"},
			scrollback.Hotspot{Label: "[L]ist", Cmd: "l"},
			scrollback.Hotspot{Label: "[M]enu", Cmd: "m"},
			scrollback.Hotspot{Label: "[Q]uit", Cmd: "q"},
		),
		border(BorderBot),
		scrollback.Text(ReadHint),
	)
}

// StatsInput carries what the statistics screen shows.
type StatsInput struct {
	Info      content.SystemInfo
	Version   string
	Stats     config.BoardStats
	LiveNodes int
}

// Stats renders the system statistics screen. The active node count is
// the larger of the configured figure and the live node count.
func Stats(in StatsInput) []scrollback.Line {
	active := in.Stats.ActiveNodes
	if in.LiveNodes > active {
		active = in.LiveNodes
	}
	out := titled(" CHANNEL 4: SYSTEM STATISTICS ")
	for _, s := range []string{
		"Node Name: " + in.Info.NodeName,
		"Software: TT-BBS v" + in.Version,
		"System Uptime: " + in.Info.Uptime,
		"Total Calls: " + Thousands(in.Stats.TotalCalls),
		"Total Users: " + Thousands(in.Stats.TotalUsers),
		"Active Nodes: " + strconv.Itoa(active),
		"Current Load: " + in.Info.LoadAverage,
	} {
		out = append(out, row(clip(s, ContentWidth), AlignLeft, scrollback.KindRegular))
	}
	return pauseFooter(out)
}

// Thousands formats n with comma separators.
func Thousands(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func userRow(node int, user, location, action string) string {
	return fmt.Sprintf("  %02d  │ %-13s│ %-15s│ %s",
		node,
		ansi.TruncateVisible(user, 13),
		ansi.TruncateVisible(location, 14),
		ansi.TruncateVisible(action, 36))
}

// UserList renders the live nodes followed by the static roster. Roster
// node numbers are shifted past the highest live node.
func UserList(live []session.NodeInfo, roster []config.RosterEntry) []scrollback.Line {
	out := titled(" CHANNEL 5: CURRENTLY ONLINE USERS ")
	out = append(out,
		row(" NODE │ USERNAME     │ LOCATION       │ ACTION", AlignLeft, scrollback.KindHeader),
		border(BorderSep),
	)
	top := 0
	for _, n := range live {
		loc := n.Remote
		if host, _, err := net.SplitHostPort(loc); err == nil {
			loc = host
		}
		if loc == "" {
			loc = n.Transport
		}
		out = append(out, row(ansi.EscapePipes(userRow(n.Node, n.User, loc, n.Activity)), AlignLeft, scrollback.KindRegular))
		if n.Node > top {
			top = n.Node
		}
	}
	for _, r := range roster {
		out = append(out, row(ansi.EscapePipes(userRow(r.Node+top, r.User, r.Location, r.Action)), AlignLeft, scrollback.KindRegular))
	}
	return pauseFooter(out)
}

// Bulletins renders the dated system bulletins.
func Bulletins(items []config.Bulletin) []scrollback.Line {
	out := titled(" CHANNEL 2: SYSTEM BULLETINS ")
	if len(items) == 0 {
		out = append(out, row("No bulletins posted.", AlignCenter, scrollback.KindRegular))
	}
	for i, b := range items {
		out = append(out, row(clip(fmt.Sprintf(" %d. %s: %s", i+1, b.Date, b.Text), ContentWidth), AlignLeft, scrollback.KindRegular))
	}
	return pauseFooter(out)
}

// FileLibrary renders the file area list.
func FileLibrary(areas []string) []scrollback.Line {
	out := titled(" FILE LIBRARY CATEGORIES ")
	for i, a := range areas {
		out = append(out, row(clip(fmt.Sprintf(" [%d] %s", i+1, a), ContentWidth), AlignLeft, scrollback.KindRegular))
	}
	return pauseFooter(out)
}

// Categories returns the sorted unique categories of posts.
func Categories(posts []content.Item) []string {
	seen := make(map[string]bool)
	var cats []string
	for _, p := range posts {
		for _, c := range p.Categories {
			if !seen[c] {
				seen[c] = true
				cats = append(cats, c)
			}
		}
	}
	sort.Strings(cats)
	return cats
}

// CategoryList renders the message areas. Selecting an ID joins the area.
func CategoryList(posts []content.Item) []scrollback.Line {
	out := titled(" CHANNEL 3: MESSAGE AREAS (CATEGORIES) ")
	cats := Categories(posts)
	if len(cats) == 0 {
		out = append(out, row("No categories found.", AlignCenter, scrollback.KindRegular))
	}
	for i, c := range cats {
		label := clip(fmt.Sprintf("[%2d] %s", i+1, c), ContentWidth)
		out = append(out, row(label, AlignLeft, scrollback.KindRow).
			WithHotspots(scrollback.Hotspot{Label: label, Cmd: strconv.Itoa(i + 1)}))
	}
	return append(out,
		border(BorderMid),
		row("COMMANDS: [M]ain Menu, [Q]uit, [ID] to Join Area", AlignCenter, scrollback.KindFooter).WithHotspots(
			scrollback.Hotspot{Label: "[M]ain Menu", Cmd: "m"},
			scrollback.Hotspot{Label: "[Q]uit", Cmd: "q"},
		),
		border(BorderBot),
	)
}

// Help renders the BBS command list.
func Help() []scrollback.Line {
	entry := func(text, label, cmd string) scrollback.Line {
		return row(text, AlignLeft, scrollback.KindRegular).WithHotspots(scrollback.Hotspot{Label: label, Cmd: cmd})
	}
	return []scrollback.Line{
		border(BorderTop),
		row("--- BBS COMMAND LIST ---", AlignCenter, scrollback.KindHeader),
		border(BorderSep),
		row("1-99 : Select a post by its ID", AlignLeft, scrollback.KindRegular),
		entry("N    : Read next post", "N", "n"),
		entry("P    : Read previous post", "P", "p"),
		entry("M    : Refresh/Show the main post menu", "M", "m"),
		entry("Q    : Exit BBS and return to system prompt", "Q", "q"),
		entry("H / ? : Show this help message", "H", "h"),
		row("--- System commands work here too! ---", AlignCenter, scrollback.KindFooter),
		border(BorderBot),
	}
}

// Whoami renders the BBS session info screen.
func Whoami(user, host string) []scrollback.Line {
	return []scrollback.Line{
		scrollback.Text("User: " + ansi.EscapePipes(user)),
		scrollback.Text("Host: " + host),
		scrollback.Text("Shell: ttsh (Tecnoter Shell)"),
		scrollback.Text("\n" + PressAnyKey),
	}
}
