package engine

import (
	"strings"

	"github.com/stlalpha/tecnoter/internal/session"
)

var pathCommands = map[string]bool{"ls": true, "cat": true, "cd": true}

// Completions returns the candidates for the last token of text. The
// first token completes against command names; later tokens of ls, cat
// and cd complete against directory entries, relative to cwd or to an
// explicit "dir/" prefix.
func Completions(snap session.Snapshot, text string) []string {
	parts := strings.Fields(text)
	trailing := strings.HasSuffix(text, " ")

	if len(parts) == 1 && !trailing {
		prefix := strings.ToLower(parts[0])
		var out []string
		for _, c := range CommandNames {
			if strings.HasPrefix(c, prefix) {
				out = append(out, c)
			}
		}
		return out
	}

	if len(parts) == 0 || !pathCommands[strings.ToLower(parts[0])] {
		return nil
	}

	last := ""
	if !trailing && len(parts) > 1 {
		last = parts[len(parts)-1]
	}
	dir, prefix, pathPrefix := snap.Cwd, last, ""
	if i := strings.LastIndex(last, "/"); i >= 0 {
		pathPrefix = last[:i+1]
		prefix = last[i+1:]
		dir = ResolvePath(snap.Cwd, pathPrefix)
	}

	entries, ok := ListDir(snap, dir)
	if !ok {
		return nil
	}
	var out []string
	for _, e := range entries {
		if strings.HasPrefix(e, prefix) {
			out = append(out, pathPrefix+e)
		}
	}
	return out
}

// LongestCommonPrefix returns the longest prefix shared by every string.
func LongestCommonPrefix(items []string) string {
	if len(items) == 0 {
		return ""
	}
	prefix := items[0]
	for _, s := range items[1:] {
		for !strings.HasPrefix(s, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	return prefix
}

// Suggest returns a one-line completion hint for text, or "".
func Suggest(snap session.Snapshot, text string) string {
	if text == "" {
		return ""
	}
	for _, c := range CommandNames {
		if strings.HasPrefix(c, text) && c != text {
			return c
		}
	}
	if !strings.HasPrefix(text, "cat ") && !strings.HasPrefix(text, "ls ") {
		return ""
	}
	parts := strings.Fields(text)
	if len(parts) > 2 {
		return ""
	}
	prefix := ""
	if len(parts) == 2 {
		prefix = parts[1]
	}
	entries, _ := ListDir(snap, snap.Cwd)
	for _, e := range entries {
		if strings.HasPrefix(e, prefix) {
			return parts[0] + " " + e
		}
	}
	for _, p := range snap.Posts {
		if strings.HasPrefix(p.Slug, prefix) {
			return parts[0] + " " + p.Slug
		}
	}
	return ""
}

// Completion is the result of applying tab completion to an input line.
type Completion struct {
	Line     string   // new input line
	Matches  []string // candidates to print, only set on a repeated request
	TabCount int      // updated consecutive tab counter
}

// Complete applies the completion rules to line given the candidates and
// the number of consecutive tab presses before this one. One match
// replaces the token and appends "/" for directories or " " otherwise.
// Several matches insert their common prefix when it is longer than the
// token; otherwise the second consecutive request lists them.
func Complete(snap session.Snapshot, line string, matches []string, tabCount int) Completion {
	parts := strings.Split(line, " ")
	last := parts[len(parts)-1]

	switch len(matches) {
	case 0:
		return Completion{Line: line}
	case 1:
		parts[len(parts)-1] = matches[0]
		suffix := " "
		isCommand := len(parts) == 1
		if !isCommand && IsDir(snap, ResolvePath(snap.Cwd, matches[0])) {
			suffix = "/"
		}
		return Completion{Line: strings.Join(parts, " ") + suffix}
	}

	tabCount++
	if prefix := LongestCommonPrefix(matches); len(prefix) > len(last) {
		parts[len(parts)-1] = prefix
		return Completion{Line: strings.Join(parts, " "), TabCount: tabCount}
	}
	if tabCount >= 2 {
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m[strings.LastIndex(m, "/")+1:]
		}
		return Completion{Line: line, Matches: names}
	}
	return Completion{Line: line, TabCount: tabCount}
}
