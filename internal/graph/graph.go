// Package graph builds normalized shading-graph descriptions from material
// descriptors and drives a scene-graph backend to materialize them.
//
// Graph construction is pure: Build produces the node set and wiring without
// touching any backend. Materialization replays a built graph against the
// backend contract with policy handling for existing materials.
package graph

import (
	"fmt"

	"github.com/google/uuid"

	"texforge/internal/channel"
	"texforge/internal/material"
)

// NodeKind identifies the abstract node types of a shading graph.
type NodeKind string

const (
	// KindTextureSampler reads a texture file or UDIM sequence
	KindTextureSampler NodeKind = "TextureSampler"
	// KindBumpMap perturbs shading normals from normal or bump textures
	KindBumpMap NodeKind = "BumpMap"
	// KindDisplacement feeds geometric displacement
	KindDisplacement NodeKind = "Displacement"
	// KindRootMaterial is the material's shading root
	KindRootMaterial NodeKind = "RootMaterial"
	// KindOutput is the graph output terminal
	KindOutput NodeKind = "Output"
	// KindFolder groups one material's nodes when per-material folders are on
	KindFolder NodeKind = "Folder"
)

// Node is one node of a shading graph description.
type Node struct {
	ID     string                 `json:"id" yaml:"id"`
	Kind   NodeKind               `json:"kind" yaml:"kind"`
	Name   string                 `json:"name" yaml:"name"`
	Params map[string]interface{} `json:"params,omitempty" yaml:"params,omitempty"`
	// Inputs maps input slot names to source node IDs
	Inputs map[string]string `json:"inputs,omitempty" yaml:"inputs,omitempty"`
}

// MaterialGraph is the normalized shading-graph description for one
// material descriptor. Built fresh each assembly run, never cached.
type MaterialGraph struct {
	Descriptor *material.Descriptor `json:"descriptor" yaml:"descriptor"`
	Nodes      []*Node              `json:"nodes" yaml:"nodes"`
	RootID     string               `json:"rootId" yaml:"rootId"`
	OutputID   string               `json:"outputId" yaml:"outputId"`
}

// Node returns a node by ID.
func (g *MaterialGraph) Node(id string) (*Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// NodesOfKind returns every node of one kind.
func (g *MaterialGraph) NodesOfKind(kind NodeKind) []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Build constructs the shading graph for a descriptor.
//
// Wiring rules: color-like channels get a sampler wired straight into the
// root slot from the table in wiring.go; Normal and Bump share exactly one
// BumpMap node (normal takes the primary input, bump the secondary, bump
// alone switches the node to bump mode); Displacement gets a dedicated
// Displacement node into the root's displacement slot and never shares a
// node with bump.
func Build(desc *material.Descriptor) (*MaterialGraph, error) {
	if desc == nil || len(desc.Channels) == 0 {
		return nil, fmt.Errorf("descriptor %q has no channels", nameOf(desc))
	}

	g := &MaterialGraph{Descriptor: desc}

	root := g.add(KindRootMaterial, desc.Name, nil)
	out := g.add(KindOutput, desc.Name+"_out", nil)
	out.Inputs[slotOutput] = root.ID
	g.RootID = root.ID
	g.OutputID = out.ID

	var bumpNode *Node

	for _, role := range desc.SortedRoles() {
		ref := desc.Channels[role]

		switch role {
		case channel.RoleNormal, channel.RoleBump:
			if bumpNode == nil {
				bumpNode = g.add(KindBumpMap, desc.Name+"_bump", nil)
				root.Inputs[slotBumpInput] = bumpNode.ID
			}
			sampler := g.addSampler(desc.Name, role, ref, ColorspaceRaw, false)
			if role == channel.RoleNormal {
				bumpNode.Params[bumpModeParam] = bumpModeNormal
				bumpNode.Inputs[slotBumpPrimary] = sampler.ID
			} else if _, hasNormal := desc.Channels[channel.RoleNormal]; hasNormal {
				// Normal occupies the primary input; bump rides second.
				bumpNode.Inputs[slotBumpSecondary] = sampler.ID
			} else {
				bumpNode.Params[bumpModeParam] = bumpModeBump
				bumpNode.Inputs[slotBumpPrimary] = sampler.ID
			}

		case channel.RoleDisplacement:
			sampler := g.addSampler(desc.Name, role, ref, ColorspaceRaw, true)
			disp := g.add(KindDisplacement, desc.Name+"_disp", nil)
			disp.Inputs[displacementSlot] = sampler.ID
			root.Inputs[slotDisplacement] = disp.ID

		default:
			w, ok := directWirings[role]
			if !ok {
				return nil, fmt.Errorf("material %q: no wiring for role %s", desc.Name, role)
			}
			sampler := g.addSampler(desc.Name, role, ref, w.Colorspace, w.SingleChannel)
			for _, slot := range w.Slots {
				root.Inputs[slot] = sampler.ID
			}
		}
	}

	return g, nil
}

func (g *MaterialGraph) add(kind NodeKind, name string, params map[string]interface{}) *Node {
	if params == nil {
		params = make(map[string]interface{})
	}
	n := &Node{
		ID:     uuid.New().String(),
		Kind:   kind,
		Name:   name,
		Params: params,
		Inputs: make(map[string]string),
	}
	g.Nodes = append(g.Nodes, n)
	return n
}

func (g *MaterialGraph) addSampler(matName string, role channel.Role, ref material.TextureReference, colorspace string, singleChannel bool) *Node {
	params := map[string]interface{}{
		"filename":   ref.Location(),
		"colorspace": colorspace,
	}
	if ref.Kind == material.RefUdimSequence {
		params["tile_mode"] = "udim"
	}
	if singleChannel {
		params["single_channel"] = true
		params["channel"] = 0
	}
	return g.add(KindTextureSampler, fmt.Sprintf("%s_%s_tex", matName, role), params)
}

func nameOf(desc *material.Descriptor) string {
	if desc == nil {
		return ""
	}
	return desc.Name
}
