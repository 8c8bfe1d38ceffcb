package backend

import (
	"context"
	"fmt"
	"sync"
)

// Op records one backend call for inspection.
type Op struct {
	Kind   string // "create", "setparam", "connect", "remove"
	Node   string
	Name   string
	Scope  string
	Param  string
	Value  interface{}
	Source string
	Dest   string
	Slot   string
}

// MemoryNode is a node held by the in-memory backend.
type MemoryNode struct {
	Handle Handle
	Kind   string
	Name   string
	Scope  string
	Params map[string]interface{}
	Inputs map[string]Handle
}

// Memory is an in-process SceneGraph used for dry runs and tests. It records
// every call and keeps created nodes addressable by scope and name.
type Memory struct {
	mu    sync.Mutex
	seq   int
	nodes map[Handle]*MemoryNode
	ops   []Op

	// KnownParams optionally restricts which parameter names resolve. When
	// nil every candidate resolves to itself.
	KnownParams map[string]bool

	// FailCreates makes CreateNode fail, for partial-failure tests.
	FailCreates bool
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{nodes: make(map[Handle]*MemoryNode)}
}

// FindExisting implements SceneGraph. Only root material nodes count;
// samplers or helper nodes with a colliding name do not.
func (m *Memory) FindExisting(_ context.Context, materialName, scope string) (Handle, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h, n := range m.nodes {
		if n.Kind == rootMaterialKind && n.Scope == scope && n.Name == materialName {
			return h, true, nil
		}
	}
	return "", false, nil
}

// CreateNode implements SceneGraph.
func (m *Memory) CreateNode(_ context.Context, kind, name, scope string) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCreates {
		return "", fmt.Errorf("create %s %q refused", kind, name)
	}
	m.seq++
	h := Handle(fmt.Sprintf("%s/%s#%d", scope, name, m.seq))
	m.nodes[h] = &MemoryNode{
		Handle: h,
		Kind:   kind,
		Name:   name,
		Scope:  scope,
		Params: make(map[string]interface{}),
		Inputs: make(map[string]Handle),
	}
	m.ops = append(m.ops, Op{Kind: "create", Node: kind, Name: name, Scope: scope})
	return h, nil
}

// SetParam implements SceneGraph.
func (m *Memory) SetParam(_ context.Context, h Handle, param string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[h]
	if !ok {
		return fmt.Errorf("unknown handle %q", h)
	}
	n.Params[param] = value
	m.ops = append(m.ops, Op{Kind: "setparam", Name: n.Name, Param: param, Value: value})
	return nil
}

// Connect implements SceneGraph.
func (m *Memory) Connect(_ context.Context, source, dest Handle, inputSlot string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[source]; !ok {
		return fmt.Errorf("unknown source handle %q", source)
	}
	n, ok := m.nodes[dest]
	if !ok {
		return fmt.Errorf("unknown dest handle %q", dest)
	}
	n.Inputs[inputSlot] = source
	m.ops = append(m.ops, Op{Kind: "connect", Source: string(source), Dest: string(dest), Slot: inputSlot})
	return nil
}

// Remove implements the Remover capability: the node and everything
// connected to it, directly or transitively, are destroyed together.
func (m *Memory) Remove(_ context.Context, h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[h]; !ok {
		return fmt.Errorf("unknown handle %q", h)
	}

	doomed := map[Handle]bool{h: true}
	for changed := true; changed; {
		changed = false
		for hh, n := range m.nodes {
			if doomed[hh] {
				for _, src := range n.Inputs {
					if !doomed[src] {
						doomed[src] = true
						changed = true
					}
				}
				continue
			}
			for _, src := range n.Inputs {
				if doomed[src] {
					doomed[hh] = true
					changed = true
					break
				}
			}
		}
	}

	for hh := range doomed {
		n, ok := m.nodes[hh]
		if !ok {
			continue
		}
		delete(m.nodes, hh)
		m.ops = append(m.ops, Op{Kind: "remove", Name: n.Name, Scope: n.Scope})
	}
	return nil
}

// ResolveParam implements the ParamResolver capability.
func (m *Memory) ResolveParam(_ Handle, candidates []string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range candidates {
		if m.KnownParams == nil || m.KnownParams[c] {
			return c, true
		}
	}
	return "", false
}

// Ops returns a copy of the recorded call log.
func (m *Memory) Ops() []Op {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Op, len(m.ops))
	copy(out, m.ops)
	return out
}

// CreateCalls counts CreateNode calls recorded so far.
func (m *Memory) CreateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, op := range m.ops {
		if op.Kind == "create" {
			count++
		}
	}
	return count
}

// Node looks up a node by scope and name.
func (m *Memory) Node(scope, name string) (*MemoryNode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.nodes {
		if n.Scope == scope && n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// NodesInScope returns all nodes within a scope.
func (m *Memory) NodesInScope(scope string) []*MemoryNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*MemoryNode
	for _, n := range m.nodes {
		if n.Scope == scope {
			out = append(out, n)
		}
	}
	return out
}
