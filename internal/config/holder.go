package config

import "sync/atomic"

// Runtime is the reloadable part of the configuration.
type Runtime struct {
	Server ServerConfig
	Board  BoardConfig
}

// Holder publishes the current Runtime to every session. Reloads swap the
// whole value so readers never see a mix of old and new settings.
type Holder struct {
	v atomic.Pointer[Runtime]
}

func NewHolder(rt Runtime) *Holder {
	h := &Holder{}
	h.v.Store(&rt)
	return h
}

func (h *Holder) Get() Runtime {
	return *h.v.Load()
}

func (h *Holder) Server() ServerConfig {
	return h.v.Load().Server
}

func (h *Holder) Board() BoardConfig {
	return h.v.Load().Board
}

// Swap installs rt and returns the previous value.
func (h *Holder) Swap(rt Runtime) Runtime {
	return *h.v.Swap(&rt)
}

// Reloadable copies the fields of next that may change while the node is
// running onto cur. Listener addresses, ports, the host key, the content
// base URL, the engine script and the art directory stay as they were at
// startup.
func Reloadable(cur, next ServerConfig) ServerConfig {
	out := next
	out.SSHPort, out.SSHHost, out.SSHEnabled = cur.SSHPort, cur.SSHHost, cur.SSHEnabled
	out.TelnetPort, out.TelnetHost, out.TelnetEnabled = cur.TelnetPort, cur.TelnetHost, cur.TelnetEnabled
	out.WebPort, out.WebHost, out.WebEnabled = cur.WebPort, cur.WebHost, cur.WebEnabled
	out.HostKeyPath = cur.HostKeyPath
	out.LegacySSHAlgorithms = cur.LegacySSHAlgorithms
	out.ContentBaseURL = cur.ContentBaseURL
	out.EngineScript = cur.EngineScript
	out.ArtDir = cur.ArtDir
	return out
}
