package session

import (
	"errors"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NodeInfo describes one live connection for who/user list screens.
type NodeInfo struct {
	ID        uuid.UUID
	Node      int
	User      string
	Remote    string
	Transport string
	Activity  string
	Connected time.Time
}

// Registry tracks all active nodes across transports.
type Registry struct {
	mu    sync.RWMutex
	nodes map[uuid.UUID]*NodeInfo
}

func NewRegistry() *Registry {
	return &Registry{
		nodes: make(map[uuid.UUID]*NodeInfo),
	}
}

// Register adds a node and returns its ID.
func (r *Registry) Register(node int, remote, transport string) uuid.UUID {
	id := uuid.New()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[id] = &NodeInfo{
		ID:        id,
		Node:      node,
		User:      DefaultUser,
		Remote:    remote,
		Transport: transport,
		Activity:  "Connecting",
		Connected: time.Now(),
	}
	return id
}

// Registry.Join errors.
var (
	ErrAllNodesBusy = errors.New("all nodes busy")
	ErrHostLimit    = errors.New("too many connections from host")
)

// Join registers a connection on the lowest free node number in
// 1..maxNodes. When perHost is positive, a host that already holds
// perHost nodes is refused. Both limits are checked under one lock.
func (r *Registry) Join(maxNodes, perHost int, remote, transport string) (uuid.UUID, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if perHost > 0 && r.countFrom(RemoteHost(remote)) >= perHost {
		return uuid.Nil, 0, ErrHostLimit
	}
	used := make(map[int]bool, len(r.nodes))
	for _, n := range r.nodes {
		used[n.Node] = true
	}
	for node := 1; node <= maxNodes; node++ {
		if used[node] {
			continue
		}
		id := uuid.New()
		r.nodes[id] = &NodeInfo{
			ID:        id,
			Node:      node,
			User:      DefaultUser,
			Remote:    remote,
			Transport: transport,
			Activity:  "Connecting",
			Connected: time.Now(),
		}
		return id, node, nil
	}
	return uuid.Nil, 0, ErrAllNodesBusy
}

// CountFrom returns how many nodes are connected from host. Remote
// addresses are compared without their port.
func (r *Registry) CountFrom(host string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countFrom(host)
}

func (r *Registry) countFrom(host string) int {
	count := 0
	for _, n := range r.nodes {
		if RemoteHost(n.Remote) == host {
			count++
		}
	}
	return count
}

// RemoteHost strips the port from a host:port address.
func RemoteHost(addr string) string {
	if h, _, err := net.SplitHostPort(addr); err == nil {
		return h
	}
	return addr
}

func (r *Registry) Unregister(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, id)
}

// Update sets the user and activity shown for a node. Unknown IDs are
// ignored.
func (r *Registry) Update(id uuid.UUID, user, activity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.nodes[id]; ok {
		n.User = user
		n.Activity = activity
	}
}

func (r *Registry) Get(id uuid.UUID) (NodeInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[id]
	if !ok {
		return NodeInfo{}, false
	}
	return *n, true
}

// List returns copies of all nodes sorted by node number.
func (r *Registry) List() []NodeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]NodeInfo, 0, len(r.nodes))
	for _, n := range r.nodes {
		result = append(result, *n)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Node < result[j].Node
	})
	return result
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// ActivityFor describes what a user in mode m is doing, for the user list.
func ActivityFor(m Mode) string {
	switch m {
	case ModeUninitialized, ModeBoot:
		return "Connecting"
	case ModeLogin, ModePassword, ModeAuthenticating:
		return "Logging In"
	case ModePrompt:
		return "System Shell"
	case ModeBbsPosts, ModeBbsRead:
		return "Reading Posts"
	case ModeBbsCategories:
		return "Message Areas"
	case ModeMail, ModeBbsMailPrompt:
		return "Composing Mail"
	case ModeMessage:
		return "Paging Sysop"
	}
	return "Main Menu"
}
