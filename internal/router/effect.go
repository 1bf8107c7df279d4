package router

import (
	"strings"
	"time"

	"github.com/stlalpha/tecnoter/internal/engine"
)

// EffectKind names an asynchronous follow-up the program loop must run.
type EffectKind int

const (
	EffectNone         EffectKind = iota
	EffectFetchContent            // Arg: page or post slug, printed in the shell
	EffectFetchPost               // Arg: post slug, shown in the BBS reader
	EffectMatrix                  // Arg: charset name
	EffectAnsi                    // random ANSI art piece
	EffectCurl                    // Arg: URL
	EffectLogout                  // end the session and reboot
	EffectExit                    // close the connection
	EffectFinishLogin             // after Delay, complete a granted login
	EffectRestartLogin            // after Delay, show the login countdown again
	EffectBoot                    // after Delay, run the boot sequence
	EffectPostList                // after Delay, return from a failed read
)

var effectNames = map[EffectKind]string{
	EffectNone:         "none",
	EffectFetchContent: "fetch-content",
	EffectFetchPost:    "fetch-post",
	EffectMatrix:       "matrix",
	EffectAnsi:         "ansi",
	EffectCurl:         "curl",
	EffectLogout:       "logout",
	EffectExit:         "exit",
	EffectFinishLogin:  "finish-login",
	EffectRestartLogin: "restart-login",
	EffectBoot:         "boot",
	EffectPostList:     "post-list",
}

func (k EffectKind) String() string {
	if s, ok := effectNames[k]; ok {
		return s
	}
	return "unknown"
}

// Effect is a side effect requested by the Router.
type Effect struct {
	Kind  EffectKind
	Arg   string
	Delay time.Duration
}

// Delays used by the login flow.
const (
	GrantDelay   = 800 * time.Millisecond
	RetryDelay   = time.Second
	RebootDelay  = time.Second
	ReadErrDelay = 2 * time.Second
)

// parseInstruction maps an engine instruction line to an effect. ok is
// false for instructions the Router does not act on.
func parseInstruction(s string) (Effect, bool) {
	switch {
	case strings.HasPrefix(s, engine.InstrMatrix):
		return Effect{Kind: EffectMatrix, Arg: strings.TrimPrefix(s, engine.InstrMatrix)}, true
	case s == engine.InstrMatrixPlain:
		return Effect{Kind: EffectMatrix, Arg: "binary"}, true
	case s == engine.InstrAnsi:
		return Effect{Kind: EffectAnsi}, true
	case s == engine.InstrExit:
		return Effect{Kind: EffectExit}, true
	case s == engine.InstrLogout:
		return Effect{Kind: EffectLogout}, true
	case strings.HasPrefix(s, engine.InstrFetchContent):
		return Effect{Kind: EffectFetchContent, Arg: strings.TrimPrefix(s, engine.InstrFetchContent)}, true
	case strings.HasPrefix(s, engine.InstrFetchPost):
		return Effect{Kind: EffectFetchPost, Arg: strings.TrimPrefix(s, engine.InstrFetchPost)}, true
	case strings.HasPrefix(s, engine.InstrCurl):
		return Effect{Kind: EffectCurl, Arg: strings.TrimPrefix(s, engine.InstrCurl)}, true
	}
	return Effect{}, false
}
