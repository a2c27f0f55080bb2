package heartbeat

import "sort"

// DefaultPeers is the built-in site agent registry: every agent expected
// to check in at this site, by name and short id
var DefaultPeers = map[string]string{
	"NEXUS":    "37c0fd6b",
	"ATLAS":    "3149e473",
	"VOLT":     "1293aef8",
	"GUARDIAN": "3bad1840",
	"SPARK":    "4aa8d644",
	"SYNC":     "cb6a5cc5",
}

// Registry maps peer names to agent ids. Built once at startup, never
// mutated afterwards.
type Registry struct {
	names  []string
	byName map[string]string
	byID   map[string]string
}

// NewRegistry builds a registry from a name → id map. An empty map
// selects the built-in peers.
func NewRegistry(peers map[string]string) *Registry {
	if len(peers) == 0 {
		peers = DefaultPeers
	}

	r := &Registry{
		names:  make([]string, 0, len(peers)),
		byName: make(map[string]string, len(peers)),
		byID:   make(map[string]string, len(peers)),
	}
	for name, id := range peers {
		r.names = append(r.names, name)
		r.byName[name] = id
		r.byID[id] = name
	}
	sort.Strings(r.names)
	return r
}

// Names returns all registered peer names, sorted
func (r *Registry) Names() []string {
	return r.names
}

// IDFor returns the agent id registered under name
func (r *Registry) IDFor(name string) (string, bool) {
	id, ok := r.byName[name]
	return id, ok
}

// NameFor resolves an agent id to its registered name. Unknown ids are
// attributed to the raw id.
func (r *Registry) NameFor(agentID string) string {
	if name, ok := r.byID[agentID]; ok {
		return name
	}
	return agentID
}
