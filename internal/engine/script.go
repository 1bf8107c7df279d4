package engine

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/stlalpha/tecnoter/internal/content"
	"github.com/stlalpha/tecnoter/internal/scrollback"
	"github.com/stlalpha/tecnoter/internal/session"
)

// ScriptTimeout bounds a single call into the script.
const ScriptTimeout = 2 * time.Second

// Script is an engine backed by a JavaScript file that defines
//
//	function process(state, input) { return {handled, lines, state} }
//
// lines are {text, type} objects or plain strings. state (or patch)
// carries the fields to change, using the same camelCase names as the
// state argument.
type Script struct {
	mu      sync.Mutex
	name    string
	vm      *goja.Runtime
	process goja.Callable
}

// LoadScript compiles the script at path. A missing or broken file
// returns an error wrapping ErrEngineUnavailable.
func LoadScript(path string) (*Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	return NewScript(path, string(src))
}

// NewScript compiles src, which must define a global process function.
func NewScript(name, src string) (s *Script, err error) {
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("%w: script panicked: %v", ErrEngineUnavailable, r)
		}
	}()

	vm := goja.New()
	if _, err := vm.RunString(src); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEngineUnavailable, name, err)
	}
	fn, ok := goja.AssertFunction(vm.Get("process"))
	if !ok {
		return nil, fmt.Errorf("%w: %s: process is not a function", ErrEngineUnavailable, name)
	}
	return &Script{name: name, vm: vm, process: fn}, nil
}

func (s *Script) Name() string { return "script" }

// Process calls the script's process function. Exceptions, panics and
// timeouts become errors; the script stays loaded for the next call.
func (s *Script) Process(snap session.Snapshot, line string) (out Outcome, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			out, err = Outcome{}, fmt.Errorf("script panicked: %v", r)
		}
	}()

	timer := time.AfterFunc(ScriptTimeout, func() {
		s.vm.Interrupt("timeout")
	})
	defer func() {
		timer.Stop()
		s.vm.ClearInterrupt()
	}()

	res, err := s.process(goja.Undefined(), s.vm.ToValue(stateObject(snap)), s.vm.ToValue(line))
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return Outcome{}, fmt.Errorf("script timed out after %s", ScriptTimeout)
		}
		return Outcome{}, fmt.Errorf("script error: %w", err)
	}
	if res == nil || goja.IsUndefined(res) || goja.IsNull(res) {
		return declined(), nil
	}
	m, ok := res.Export().(map[string]interface{})
	if !ok {
		return Outcome{}, fmt.Errorf("script returned %T, want object", res.Export())
	}
	return parseResult(m)
}

func itemObjects(items []content.Item) []interface{} {
	out := make([]interface{}, len(items))
	for i, it := range items {
		out[i] = map[string]interface{}{
			"slug":       it.Slug,
			"title":      it.Title,
			"date":       it.Date,
			"url":        it.URL,
			"tags":       stringsToAny(it.Tags),
			"categories": stringsToAny(it.Categories),
		}
	}
	return out
}

func stringsToAny(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func stateObject(snap session.Snapshot) map[string]interface{} {
	socials := make([]interface{}, len(snap.Socials))
	for i, so := range snap.Socials {
		socials[i] = map[string]interface{}{"name": so.Name, "url": so.URL}
	}
	return map[string]interface{}{
		"loginState":       snap.Mode.String(),
		"currentUser":      snap.CurrentUser,
		"cwd":              snap.Cwd,
		"posts":            itemObjects(snap.Posts),
		"pages":            itemObjects(snap.Pages),
		"socials":          socials,
		"fortunes":         stringsToAny(snap.Fortunes),
		"currentPostIndex": snap.CurrentPostIndex,
		"returnState":      snap.ReturnState.String(),
		"mailRecipient":    snap.MailRecipient,
		"systemMode":       snap.SystemMode.String(),
		"isAuthenticated":  snap.Authenticated,
		"version":          snap.Version,
		"systemInfo": map[string]interface{}{
			"uptime":         snap.SystemInfo.Uptime,
			"loadAverage":    snap.SystemInfo.LoadAverage,
			"motdSuggestion": snap.SystemInfo.MotdSuggestion,
			"nodeName":       snap.SystemInfo.NodeName,
			"currentDate":    snap.SystemInfo.CurrentDate,
			"bio":            snap.SystemInfo.Bio,
		},
	}
}

func parseResult(m map[string]interface{}) (Outcome, error) {
	handledVal, err := getBool(m, "handled", false)
	if err != nil {
		return Outcome{}, err
	}
	if !handledVal {
		return declined(), nil
	}
	out := Outcome{Handled: true}

	if raw, ok := m["lines"]; ok && raw != nil {
		list, ok := raw.([]interface{})
		if !ok {
			return Outcome{}, fmt.Errorf("lines: expected array, got %T", raw)
		}
		for i, v := range list {
			l, err := parseLine(v)
			if err != nil {
				return Outcome{}, fmt.Errorf("lines[%d]: %w", i, err)
			}
			out.Lines = append(out.Lines, l)
		}
	}

	for _, key := range []string{"state", "patch"} {
		if !present(m, key) {
			continue
		}
		raw := m[key]
		pm, ok := raw.(map[string]interface{})
		if !ok {
			return Outcome{}, fmt.Errorf("%s: expected object, got %T", key, raw)
		}
		p, err := parsePatch(pm)
		if err != nil {
			return Outcome{}, fmt.Errorf("%s: %w", key, err)
		}
		out.Patch = out.Patch.Merge(p)
	}
	return out, nil
}

func parseLine(v interface{}) (scrollback.Line, error) {
	switch t := v.(type) {
	case string:
		return scrollback.Text(t), nil
	case map[string]interface{}:
		text, err := getString(t, "text", "")
		if err != nil {
			return scrollback.Line{}, err
		}
		kind, err := getString(t, "type", string(scrollback.KindRegular))
		if err != nil {
			return scrollback.Line{}, err
		}
		return scrollback.Styled(text, scrollback.ParseKind(kind)), nil
	}
	return scrollback.Line{}, fmt.Errorf("expected string or object, got %T", v)
}

func parseMode(m map[string]interface{}, key string) (*session.Mode, error) {
	s, err := getString(m, key, "")
	if err != nil || s == "" {
		return nil, err
	}
	mode, ok := session.ParseMode(s)
	if !ok {
		return nil, fmt.Errorf("%s: unknown mode %q", key, s)
	}
	return &mode, nil
}

func parsePatch(m map[string]interface{}) (session.Patch, error) {
	var p session.Patch
	var err error
	if p.Mode, err = parseMode(m, "loginState"); err != nil {
		return p, err
	}
	if p.ReturnState, err = parseMode(m, "returnState"); err != nil {
		return p, err
	}
	for key, dst := range map[string]**string{
		"currentUser":   &p.CurrentUser,
		"cwd":           &p.Cwd,
		"mailRecipient": &p.MailRecipient,
	} {
		if !present(m, key) {
			continue
		}
		s, err := getString(m, key, "")
		if err != nil {
			return p, err
		}
		*dst = &s
	}
	if present(m, "currentPostIndex") {
		i, err := getInt(m, "currentPostIndex", -1)
		if err != nil {
			return p, err
		}
		p.CurrentPostIndex = &i
	}
	if present(m, "isAuthenticated") {
		b, err := getBool(m, "isAuthenticated", false)
		if err != nil {
			return p, err
		}
		p.Authenticated = &b
	}
	if present(m, "systemMode") {
		s, err := getString(m, "systemMode", "")
		if err != nil {
			return p, err
		}
		sm, ok := session.ParseSystemMode(s)
		if !ok {
			return p, fmt.Errorf("systemMode: unknown mode %q", s)
		}
		p.SystemMode = &sm
	}
	return p, nil
}

func present(m map[string]interface{}, key string) bool {
	v, ok := m[key]
	return ok && v != nil && v != goja.Undefined()
}

func getString(m map[string]interface{}, key, def string) (string, error) {
	if !present(m, key) {
		return def, nil
	}
	s, ok := m[key].(string)
	if !ok {
		return "", fmt.Errorf("%s: expected string, got %T", key, m[key])
	}
	return s, nil
}

func getBool(m map[string]interface{}, key string, def bool) (bool, error) {
	if !present(m, key) {
		return def, nil
	}
	b, ok := m[key].(bool)
	if !ok {
		return false, fmt.Errorf("%s: expected bool, got %T", key, m[key])
	}
	return b, nil
}

func getInt(m map[string]interface{}, key string, def int) (int, error) {
	if !present(m, key) {
		return def, nil
	}
	switch v := m[key].(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	}
	return 0, fmt.Errorf("%s: expected number, got %T", key, m[key])
}
