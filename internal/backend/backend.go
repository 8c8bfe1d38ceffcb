// Package backend defines the scene-graph backend contract: the four
// abstract operations the assembler is allowed to issue against a host
// material system. The engine core never touches a host SDK; host-specific
// integrations implement SceneGraph out of tree.
package backend

import "context"

// Handle identifies a node owned by the backend. Opaque to the engine;
// handles returned from materialization are owned by the caller.
type Handle string

// SceneGraph is the backend collaborator contract.
type SceneGraph interface {
	// FindExisting looks up a material root node by name within a scope.
	FindExisting(ctx context.Context, materialName, scope string) (Handle, bool, error)

	// CreateNode creates a node of the given kind in a scope and returns
	// its handle.
	CreateNode(ctx context.Context, kind, name, scope string) (Handle, error)

	// SetParam sets a parameter on a node.
	SetParam(ctx context.Context, h Handle, param string, value interface{}) error

	// Connect wires source into the named input slot of dest.
	Connect(ctx context.Context, source, dest Handle, inputSlot string) error
}

// Remover is an optional capability: backends that support destroying
// materials implement it, enabling the overwrite policy. Remove destroys the
// node together with every node connected to it, directly or transitively,
// so a material's samplers and output terminal go with its root. Backends
// without it cause overwrite requests to fail per material instead of
// guessing.
type Remover interface {
	Remove(ctx context.Context, h Handle) error
}

// ParamResolver is an optional capability: given an ordered candidate list of
// parameter or slot names, the backend reports which one the node actually
// supports. Assemblers use it instead of attempting writes blindly.
type ParamResolver interface {
	ResolveParam(h Handle, candidates []string) (string, bool)
}
