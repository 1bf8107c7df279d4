package engine

import (
	"sort"
	"strings"

	"github.com/stlalpha/tecnoter/internal/content"
	"github.com/stlalpha/tecnoter/internal/session"
)

var rootDirs = []string{"posts", "pages", "tags", "categories"}

// ResolvePath resolves p against cwd. ".." always goes to the root since
// the tree is at most two levels deep.
func ResolvePath(cwd, p string) string {
	switch p {
	case "", ".":
		return cwd
	case "/":
		return "/"
	case "..":
		return "/"
	}
	var out string
	if strings.HasPrefix(p, "/") {
		out = p
	} else if cwd == "/" || cwd == "" {
		out = "/" + p
	} else {
		out = cwd + "/" + p
	}
	for strings.Contains(out, "//") {
		out = strings.ReplaceAll(out, "//", "/")
	}
	if len(out) > 1 {
		out = strings.TrimSuffix(out, "/")
	}
	return out
}

func uniqueSorted(items [][]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range items {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}

func allTags(snap session.Snapshot) []string {
	var lists [][]string
	for _, it := range snap.Posts {
		lists = append(lists, it.Tags)
	}
	for _, it := range snap.Pages {
		lists = append(lists, it.Tags)
	}
	return uniqueSorted(lists)
}

func allCategories(snap session.Snapshot) []string {
	var lists [][]string
	for _, it := range snap.Posts {
		lists = append(lists, it.Categories)
	}
	for _, it := range snap.Pages {
		lists = append(lists, it.Categories)
	}
	return uniqueSorted(lists)
}

func slugs(items []content.Item, keep func(content.Item) bool) []string {
	var out []string
	for _, it := range items {
		if keep == nil || keep(it) {
			out = append(out, it.Slug)
		}
	}
	return out
}

func leaf(path, root string) (string, bool) {
	if !strings.HasPrefix(path, root) {
		return "", false
	}
	name := path[len(root):]
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

// ListDir returns the entries of a directory in the virtual tree, and
// false when path is not a directory.
func ListDir(snap session.Snapshot, path string) ([]string, bool) {
	switch path {
	case "/":
		return append([]string(nil), rootDirs...), true
	case "/posts":
		return slugs(snap.Posts, nil), true
	case "/pages":
		return slugs(snap.Pages, nil), true
	case "/tags":
		return allTags(snap), true
	case "/categories":
		return allCategories(snap), true
	}
	if tag, ok := leaf(path, "/tags/"); ok {
		has := func(it content.Item) bool { return it.HasTag(tag) }
		return append(slugs(snap.Posts, has), slugs(snap.Pages, has)...), true
	}
	if cat, ok := leaf(path, "/categories/"); ok {
		in := func(it content.Item) bool { return it.InCategory(cat) }
		return append(slugs(snap.Posts, in), slugs(snap.Pages, in)...), true
	}
	return nil, false
}

// IsDir reports whether path names a directory.
func IsDir(snap session.Snapshot, path string) bool {
	_, ok := ListDir(snap, path)
	return ok
}
