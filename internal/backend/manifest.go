package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ManifestNode is one node entry in a written manifest.
type ManifestNode struct {
	Name   string                 `yaml:"name"`
	Kind   string                 `yaml:"kind"`
	Params map[string]interface{} `yaml:"params,omitempty"`
	Inputs map[string]string      `yaml:"inputs,omitempty"`
}

// manifestDoc is the YAML document written per scope.
type manifestDoc struct {
	Scope string          `yaml:"scope"`
	Nodes []*ManifestNode `yaml:"nodes"`
}

// Manifest is a SceneGraph backend that materializes graphs as YAML
// documents on disk, one file per mesh scope. It lets a renderer-integration
// layer (or a human) inspect exactly what would be built in a host.
type Manifest struct {
	mu     sync.Mutex
	outDir string
	docs   map[string]*manifestDoc // scope -> doc
	byH    map[Handle]*ManifestNode
	seq    int
}

// NewManifest creates a manifest backend writing under outDir.
func NewManifest(outDir string) *Manifest {
	return &Manifest{
		outDir: outDir,
		docs:   make(map[string]*manifestDoc),
		byH:    make(map[Handle]*ManifestNode),
	}
}

// rootKinds are the node kinds FindExisting matches against.
const rootMaterialKind = "RootMaterial"

// FindExisting implements SceneGraph. A material exists when its root node is
// present in the in-memory document for the scope, or in a previously written
// manifest file.
func (m *Manifest) FindExisting(_ context.Context, materialName, scope string) (Handle, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if doc, ok := m.docs[scope]; ok {
		for _, n := range doc.Nodes {
			if n.Kind == rootMaterialKind && n.Name == materialName {
				return m.handleFor(scope, n.Name), true, nil
			}
		}
	}

	doc, err := m.readScopeFile(scope)
	if err != nil {
		return "", false, err
	}
	if doc != nil {
		for _, n := range doc.Nodes {
			if n.Kind == rootMaterialKind && n.Name == materialName {
				// Load the document so overwrite can remove from it.
				m.docs[scope] = doc
				for _, loaded := range doc.Nodes {
					m.byH[m.handleFor(scope, loaded.Name)] = loaded
				}
				return m.handleFor(scope, n.Name), true, nil
			}
		}
	}
	return "", false, nil
}

// CreateNode implements SceneGraph.
func (m *Manifest) CreateNode(_ context.Context, kind, name, scope string) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[scope]
	if !ok {
		loaded, err := m.readScopeFile(scope)
		if err != nil {
			return "", err
		}
		if loaded == nil {
			loaded = &manifestDoc{Scope: scope}
		}
		doc = loaded
		m.docs[scope] = doc
		for _, n := range doc.Nodes {
			m.byH[m.handleFor(scope, n.Name)] = n
		}
	}

	node := &ManifestNode{
		Name:   name,
		Kind:   kind,
		Params: make(map[string]interface{}),
		Inputs: make(map[string]string),
	}
	doc.Nodes = append(doc.Nodes, node)
	h := m.handleFor(scope, name)
	m.byH[h] = node
	return h, nil
}

// SetParam implements SceneGraph.
func (m *Manifest) SetParam(_ context.Context, h Handle, param string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	node, ok := m.byH[h]
	if !ok {
		return fmt.Errorf("unknown handle %q", h)
	}
	node.Params[param] = value
	return nil
}

// Connect implements SceneGraph.
func (m *Manifest) Connect(_ context.Context, source, dest Handle, inputSlot string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.byH[source]
	if !ok {
		return fmt.Errorf("unknown source handle %q", source)
	}
	dst, ok := m.byH[dest]
	if !ok {
		return fmt.Errorf("unknown dest handle %q", dest)
	}
	dst.Inputs[inputSlot] = src.Name
	return nil
}

// Remove implements the Remover capability: the node and every node
// connected to it, directly or transitively, are dropped from the scope
// document together.
func (m *Manifest) Remove(_ context.Context, h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	node, ok := m.byH[h]
	if !ok {
		return fmt.Errorf("unknown handle %q", h)
	}
	scope, _ := splitHandle(h)
	doc, ok := m.docs[scope]
	if !ok {
		return fmt.Errorf("no document for scope %q", scope)
	}

	doomed := map[string]bool{node.Name: true}
	for changed := true; changed; {
		changed = false
		for _, n := range doc.Nodes {
			if doomed[n.Name] {
				for _, srcName := range n.Inputs {
					if !doomed[srcName] {
						doomed[srcName] = true
						changed = true
					}
				}
				continue
			}
			for _, srcName := range n.Inputs {
				if doomed[srcName] {
					doomed[n.Name] = true
					changed = true
					break
				}
			}
		}
	}

	kept := doc.Nodes[:0]
	for _, n := range doc.Nodes {
		if doomed[n.Name] {
			delete(m.byH, m.handleFor(scope, n.Name))
			continue
		}
		kept = append(kept, n)
	}
	doc.Nodes = kept
	return nil
}

// Flush writes every touched scope document to disk.
func (m *Manifest) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.outDir, 0755); err != nil {
		return err
	}

	scopes := make([]string, 0, len(m.docs))
	for scope := range m.docs {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)

	for _, scope := range scopes {
		data, err := yaml.Marshal(m.docs[scope])
		if err != nil {
			return err
		}
		path := m.scopePath(scope)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manifest) handleFor(scope, name string) Handle {
	return Handle(scope + "|" + name)
}

func splitHandle(h Handle) (scope, name string) {
	parts := strings.SplitN(string(h), "|", 2)
	if len(parts) != 2 {
		return string(h), ""
	}
	return parts[0], parts[1]
}

func (m *Manifest) scopePath(scope string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, scope)
	return filepath.Join(m.outDir, safe+".yaml")
}

func (m *Manifest) readScopeFile(scope string) (*manifestDoc, error) {
	data, err := os.ReadFile(m.scopePath(scope))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var doc manifestDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("corrupt manifest for scope %q: %w", scope, err)
	}
	return &doc, nil
}
