// Package content fetches and holds the site index (posts, pages, socials,
// fortunes, system info) published by the Hugo theme as JSON.
package content

import "strings"

// Item is a content summary record for a post or a page.
type Item struct {
	Title      string   `json:"title"`
	Slug       string   `json:"slug"`
	URL        string   `json:"url"`
	Date       string   `json:"date"`
	Tags       []string `json:"tags"`
	Categories []string `json:"categories"`
}

// HasTag reports whether the item is tagged with tag.
func (it Item) HasTag(tag string) bool {
	for _, t := range it.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// InCategory reports whether the item belongs to category cat.
func (it Item) InCategory(cat string) bool {
	for _, c := range it.Categories {
		if c == cat {
			return true
		}
	}
	return false
}

// ContentPath is the item's JSON document path, "<url>/index.json".
func (it Item) ContentPath() string {
	if strings.HasSuffix(it.URL, "/") {
		return it.URL + "index.json"
	}
	return it.URL + "/index.json"
}

// Social is a linked social network.
type Social struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// SystemInfo is the node status block shown by motd, uptime and stats.
type SystemInfo struct {
	Uptime         string `json:"uptime"`
	LoadAverage    string `json:"loadAverage"`
	MotdSuggestion string `json:"motdSuggestion"`
	NodeName       string `json:"nodeName"`
	CurrentDate    string `json:"currentDate"`
	Bio            string `json:"bio"`
}

// DefaultSystemInfo is used until the index provides its own block.
func DefaultSystemInfo() SystemInfo {
	return SystemInfo{
		Uptime:         "unknown",
		LoadAverage:    "0.00, 0.00, 0.00",
		MotdSuggestion: "Type 'help' to see available commands.",
		NodeName:       "tecnoter.io",
	}
}

// Index is the site-wide /index.json document.
type Index struct {
	Posts      []Item     `json:"posts"`
	Pages      []Item     `json:"pages"`
	Socials    []Social   `json:"socials"`
	Fortunes   []string   `json:"fortunes"`
	SystemInfo SystemInfo `json:"systemInfo"`
}

// FindPost returns the index of the post with slug, or -1.
func (idx Index) FindPost(slug string) int {
	for i, p := range idx.Posts {
		if p.Slug == slug {
			return i
		}
	}
	return -1
}

// FindPage returns the index of the page with slug, or -1.
func (idx Index) FindPage(slug string) int {
	for i, p := range idx.Pages {
		if p.Slug == slug {
			return i
		}
	}
	return -1
}

// Lookup searches pages first, then posts, as cat does.
func (idx Index) Lookup(slug string) (Item, bool) {
	if i := idx.FindPage(slug); i >= 0 {
		return idx.Pages[i], true
	}
	if i := idx.FindPost(slug); i >= 0 {
		return idx.Posts[i], true
	}
	return Item{}, false
}

// Document is a single post or page body, "<url>/index.json".
type Document struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Body    string `json:"body"`
}

// Text returns the document body, preferring content over body.
func (d Document) Text() string {
	if d.Content != "" {
		return d.Content
	}
	if d.Body != "" {
		return d.Body
	}
	return "No content available."
}
