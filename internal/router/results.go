package router

import (
	"errors"
	"fmt"
	"log"

	"github.com/stlalpha/tecnoter/internal/ansi"
	"github.com/stlalpha/tecnoter/internal/bbs"
	"github.com/stlalpha/tecnoter/internal/content"
	"github.com/stlalpha/tecnoter/internal/scrollback"
	"github.com/stlalpha/tecnoter/internal/session"
)

// CurlLimit is the number of characters curl prints before truncating.
const CurlLimit = 2000

// LookupItem finds a page or post by slug in the session's content.
func (r *Router) LookupItem(slug string) (content.Item, bool) {
	idx := content.Index{Posts: r.sess.Posts, Pages: r.sess.Pages}
	if i := idx.FindPage(slug); i >= 0 {
		return idx.Pages[i], true
	}
	if i := idx.FindPost(slug); i >= 0 {
		return idx.Posts[i], true
	}
	return content.Item{}, false
}

// ContentLoaded prints a page or post fetched for cat. Results from an
// earlier login are dropped.
func (r *Router) ContentLoaded(epoch uint64, slug string, doc content.Document, err error) {
	if !r.current(epoch) {
		return
	}
	if err != nil {
		log.Printf("WARN: Node %d: fetch %s failed: %v", r.sess.Node, slug, err)
		r.printError("Error loading content: " + ansi.EscapePipes(err.Error()))
		return
	}
	r.print("\n|15# " + ansi.EscapePipes(doc.Title) + "|07\n")
	r.print(ansi.EscapePipes(doc.Text()))
}

// PostLoaded renders a post in the BBS reader. Results for a post the
// user has already left are dropped.
func (r *Router) PostLoaded(epoch uint64, slug string, doc content.Document, err error) []Effect {
	s := r.sess
	if !r.current(epoch) || s.Mode != session.ModeBbsRead || s.CurrentPostIndex < 0 || s.CurrentPostIndex >= len(s.Posts) ||
		s.Posts[s.CurrentPostIndex].Slug != slug {
		return nil
	}
	if err != nil {
		log.Printf("WARN: Node %d: fetch post %s failed: %v", s.Node, slug, err)
		r.printError("Error loading content: " + ansi.EscapePipes(err.Error()))
		return []Effect{{Kind: EffectPostList, Delay: ReadErrDelay}}
	}
	r.out.AppendLines(scrollback.Clear())
	r.out.AppendLines(bbs.ReadView(doc.Title, doc.Text())...)
	s.Mode = session.ModeBbsPause
	s.ReturnState = session.ModeBbsPosts
	r.changed()
	return nil
}

// ReturnToPostList shows the post list after a failed read.
func (r *Router) ReturnToPostList() []Effect {
	if r.sess.Mode != session.ModeBbsRead {
		return nil
	}
	return r.Dispatch("l")
}

// CurlLoaded prints a fetched URL, truncated to CurlLimit characters.
func (r *Router) CurlLoaded(epoch uint64, url, body string, err error) {
	if !r.current(epoch) {
		return
	}
	if err != nil {
		var se *content.StatusError
		if errors.As(err, &se) {
			r.printError(fmt.Sprintf("curl: error %d", se.Status))
		} else {
			r.printError("curl: " + ansi.EscapePipes(err.Error()))
		}
		return
	}
	if runes := []rune(body); len(runes) > CurlLimit {
		body = string(runes[:CurlLimit]) + "\n... [TRUNCATED]"
	}
	r.print(ansi.EscapePipes(body))
}

// AnsiLoaded prints a decoded ANSI art piece.
func (r *Router) AnsiLoaded(epoch uint64, name string, lines []string, err error) {
	if !r.current(epoch) {
		return
	}
	if err != nil {
		r.printError("ansi: " + ansi.EscapePipes(err.Error()))
		return
	}
	r.out.Append("|08-- "+ansi.EscapePipes(name)+" --|07", scrollback.KindRegular)
	for _, l := range lines {
		r.out.Append(ansi.EscapePipes(l), scrollback.KindRegular)
	}
}

// MatrixLine prints one line of a matrix run. It reports false when the
// run belongs to an earlier login and should stop.
func (r *Router) MatrixLine(epoch uint64, text string) bool {
	if epoch != r.epoch {
		return false
	}
	r.out.Append(ansi.EscapePipes(text), scrollback.KindMatrix)
	return true
}
