package graph

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"texforge/internal/backend"
	"texforge/internal/errors"
	"texforge/internal/logging"
)

// Policy selects how materialization treats an existing material of the
// same name in the same scope.
type Policy string

const (
	// PolicySkip leaves the existing material untouched
	PolicySkip Policy = "skip"
	// PolicyOverwrite destroys the existing material and recreates it
	PolicyOverwrite Policy = "overwrite"
	// PolicyRename creates the new material under a suffixed name
	PolicyRename Policy = "rename"
)

// ParsePolicy validates a policy name from config or flags.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicySkip, PolicyOverwrite, PolicyRename:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown policy %q (want skip, overwrite, or rename)", s)
}

// Status is the outcome class of materializing one graph.
type Status string

const (
	// StatusCreated means the material was built
	StatusCreated Status = "created"
	// StatusSkipped means an existing material was left in place
	StatusSkipped Status = "skipped"
	// StatusRenamed means the material was built under a disambiguated name
	StatusRenamed Status = "renamed"
)

// Outcome reports what materializing one graph did.
type Outcome struct {
	// MaterialName is the backend node name actually used
	MaterialName string
	Status       Status
	// Existed is true when a same-named material was found in scope
	Existed bool
	// RootHandle is the created material's root handle; owned by the caller
	RootHandle backend.Handle
}

// Options configures a Materializer.
type Options struct {
	// Prefix prepended to material node names
	Prefix string
	// GroupPerMaterial creates a folder node per material
	GroupPerMaterial bool
	// CallTimeout bounds each individual backend call; zero means no bound
	CallTimeout time.Duration
	Logger      *logging.Logger
}

// Materializer replays built graphs against a scene-graph backend.
type Materializer struct {
	sg   backend.SceneGraph
	opts Options
}

// NewMaterializer creates a materializer for the given backend.
func NewMaterializer(sg backend.SceneGraph, opts Options) *Materializer {
	if opts.Logger == nil {
		opts.Logger = logging.NewDiscardLogger()
	}
	return &Materializer{sg: sg, opts: opts}
}

// paramCandidates maps the abstract parameter names used in graph nodes to
// the ordered candidate spellings offered to the backend. Backends that
// implement ParamResolver pick the spelling their host supports; others get
// the first candidate.
var paramCandidates = map[string][]string{
	"filename":       {"filename", "tex0", "file"},
	"colorspace":     {"colorspace", "tex0_colorSpace", "color_space"},
	"tile_mode":      {"tile_mode", "tex0_sequence_type", "udim_mode"},
	"single_channel": {"single_channel", "tex0_useColorChannel"},
	"channel":        {"channel", "tex0_channel"},
	bumpModeParam:    {"input_type", "inputType", "input_map_type"},
}

// Materialize builds one material in the backend. The existence check, every
// node creation, parameter write, and connection go through the four
// abstract backend operations; each call carries the configured timeout.
// A failed backend call aborts only this material.
func (m *Materializer) Materialize(ctx context.Context, g *MaterialGraph, scope string) (*Outcome, error) {
	return m.materialize(ctx, g, scope, PolicySkip)
}

// MaterializeWithPolicy is Materialize with an explicit existing-material policy.
func (m *Materializer) MaterializeWithPolicy(ctx context.Context, g *MaterialGraph, scope string, policy Policy) (*Outcome, error) {
	return m.materialize(ctx, g, scope, policy)
}

func (m *Materializer) materialize(ctx context.Context, g *MaterialGraph, scope string, policy Policy) (*Outcome, error) {
	name := SanitizeName(m.opts.Prefix + g.Descriptor.Name)
	outcome := &Outcome{MaterialName: name, Status: StatusCreated}

	nodeScope := m.materialScope(scope, name)
	existing, found, err := m.findExisting(ctx, name, nodeScope)
	if err != nil {
		return nil, errors.New(errors.BackendUnavailable,
			fmt.Sprintf("existence check for %q failed", name), err)
	}

	if found {
		outcome.Existed = true
		switch policy {
		case PolicySkip:
			outcome.Status = StatusSkipped
			m.opts.Logger.Info("material exists, skipping", map[string]interface{}{
				"material": name, "scope": scope,
			})
			return outcome, nil

		case PolicyOverwrite:
			remover, ok := m.sg.(backend.Remover)
			if !ok {
				return nil, errors.New(errors.GraphAssemblyFailed,
					fmt.Sprintf("backend cannot remove %q for overwrite", name), nil)
			}
			if err := m.call(ctx, func(c context.Context) error {
				return remover.Remove(c, existing)
			}); err != nil {
				return nil, errors.New(errors.GraphAssemblyFailed,
					fmt.Sprintf("removing existing %q failed", name), err)
			}

		case PolicyRename:
			renamed, err := m.freeName(ctx, name, scope)
			if err != nil {
				return nil, err
			}
			name = renamed
			outcome.MaterialName = name
			outcome.Status = StatusRenamed
			nodeScope = m.materialScope(scope, name)
		}
	}

	if m.opts.GroupPerMaterial && (!found || outcome.Status == StatusRenamed) {
		if _, err := m.createNode(ctx, string(KindFolder), "FOLDER_"+name, scope); err != nil {
			return nil, errors.New(errors.GraphAssemblyFailed,
				fmt.Sprintf("creating folder for %q failed", name), err)
		}
	}

	handles := make(map[string]backend.Handle, len(g.Nodes))
	for _, node := range g.Nodes {
		nodeName := node.Name
		if node.ID == g.RootID {
			nodeName = name
		}
		h, err := m.createNode(ctx, string(node.Kind), SanitizeName(nodeName), nodeScope)
		if err != nil {
			return nil, errors.New(errors.GraphAssemblyFailed,
				fmt.Sprintf("creating %s for %q failed", node.Kind, name), err)
		}
		handles[node.ID] = h
		if node.ID == g.RootID {
			outcome.RootHandle = h
		}

		for param, value := range node.Params {
			resolved, ok := m.resolveParam(h, param)
			if !ok {
				m.opts.Logger.Debug("parameter unsupported by backend", map[string]interface{}{
					"node": node.Name, "param": param,
				})
				continue
			}
			if err := m.setParam(ctx, h, resolved, value); err != nil {
				return nil, errors.New(errors.GraphAssemblyFailed,
					fmt.Sprintf("setting %s on %s failed", param, node.Name), err)
			}
		}
	}

	for _, node := range g.Nodes {
		for slot, sourceID := range node.Inputs {
			src, ok := handles[sourceID]
			if !ok {
				return nil, errors.New(errors.GraphAssemblyFailed,
					fmt.Sprintf("graph for %q references unknown node %s", name, sourceID), nil)
			}
			if err := m.connect(ctx, src, handles[node.ID], slot); err != nil {
				return nil, errors.New(errors.GraphAssemblyFailed,
					fmt.Sprintf("connecting %s of %s failed", slot, node.Name), err)
			}
		}
	}

	m.opts.Logger.Info("material created", map[string]interface{}{
		"material": name, "scope": scope, "nodes": len(g.Nodes),
	})
	return outcome, nil
}

// materialScope is where one material's nodes live: the mesh scope itself,
// or a per-material folder scope when grouping is on. Existence checks and
// node creation always use the same scope for a given name, so later runs
// see what earlier ones built.
func (m *Materializer) materialScope(scope, name string) string {
	if m.opts.GroupPerMaterial {
		return scope + "/FOLDER_" + name
	}
	return scope
}

// freeName finds the first unused rename candidate: name_1, name_2, ...
func (m *Materializer) freeName(ctx context.Context, name, scope string) (string, error) {
	for i := 1; i < 1000; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		_, found, err := m.findExisting(ctx, candidate, m.materialScope(scope, candidate))
		if err != nil {
			return "", errors.New(errors.BackendUnavailable,
				fmt.Sprintf("existence check for %q failed", candidate), err)
		}
		if !found {
			return candidate, nil
		}
	}
	return "", errors.New(errors.GraphAssemblyFailed,
		fmt.Sprintf("no free rename candidate for %q", name), nil)
}

func (m *Materializer) resolveParam(h backend.Handle, param string) (string, bool) {
	candidates, ok := paramCandidates[param]
	if !ok {
		candidates = []string{param}
	}
	if resolver, ok := m.sg.(backend.ParamResolver); ok {
		return resolver.ResolveParam(h, candidates)
	}
	return candidates[0], true
}

// call wraps a backend operation with the per-call timeout.
func (m *Materializer) call(ctx context.Context, fn func(context.Context) error) error {
	if m.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.CallTimeout)
		defer cancel()
	}
	return fn(ctx)
}

func (m *Materializer) findExisting(ctx context.Context, name, scope string) (backend.Handle, bool, error) {
	var h backend.Handle
	var found bool
	err := m.call(ctx, func(c context.Context) error {
		var err error
		h, found, err = m.sg.FindExisting(c, name, scope)
		return err
	})
	return h, found, err
}

func (m *Materializer) createNode(ctx context.Context, kind, name, scope string) (backend.Handle, error) {
	var h backend.Handle
	err := m.call(ctx, func(c context.Context) error {
		var err error
		h, err = m.sg.CreateNode(c, kind, name, scope)
		return err
	})
	return h, err
}

func (m *Materializer) setParam(ctx context.Context, h backend.Handle, param string, value interface{}) error {
	return m.call(ctx, func(c context.Context) error {
		return m.sg.SetParam(c, h, param, value)
	})
}

func (m *Materializer) connect(ctx context.Context, src, dst backend.Handle, slot string) error {
	return m.call(ctx, func(c context.Context) error {
		return m.sg.Connect(c, src, dst, slot)
	})
}

var (
	reInvalidNodeChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)
	reLeadingDigit     = regexp.MustCompile(`^[0-9]`)
)

// SanitizeName converts a material name into a valid backend node name:
// tile placeholders dropped, invalid characters replaced with underscores,
// a leading digit prefixed.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "<UDIM>", "")
	name = strings.ReplaceAll(name, "%(UDIM)d", "")
	name = reInvalidNodeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return "material"
	}
	if reLeadingDigit.MatchString(name) {
		name = "_" + name
	}
	return name
}
