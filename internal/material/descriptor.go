// Package material recovers canonical material identities from classified
// texture files and consolidates per-channel fragments into descriptors.
package material

import (
	"path/filepath"
	"sort"

	"texforge/internal/channel"
)

// RefKind distinguishes the two texture reference variants.
type RefKind string

const (
	// RefSingleFile references one concrete texture file
	RefSingleFile RefKind = "file"
	// RefUdimSequence references a multi-tile sequence by canonical pattern
	RefUdimSequence RefKind = "udim"
)

// TextureReference is a tagged variant: either a single file path or a UDIM
// sequence identified by its canonical pattern.
type TextureReference struct {
	Kind RefKind `json:"kind"`

	// Path is the file path (single-file variant)
	Path string `json:"path,omitempty"`

	// Pattern is the canonical placeholder pattern (sequence variant)
	Pattern string `json:"pattern,omitempty"`
	// SampleFile is one concrete tile of the sequence
	SampleFile string `json:"sampleFile,omitempty"`
	// Directory holds the sequence's tiles
	Directory string `json:"directory,omitempty"`
}

// SingleFile builds a single-file reference.
func SingleFile(path string) TextureReference {
	return TextureReference{Kind: RefSingleFile, Path: path}
}

// UdimSequence builds a sequence reference.
func UdimSequence(pattern, sampleFile, directory string) TextureReference {
	return TextureReference{
		Kind:       RefUdimSequence,
		Pattern:    pattern,
		SampleFile: sampleFile,
		Directory:  directory,
	}
}

// Location returns the path a renderer should load: the concrete file, or the
// directory-joined canonical pattern for sequences.
func (r TextureReference) Location() string {
	if r.Kind == RefUdimSequence {
		return filepath.Join(r.Directory, r.Pattern)
	}
	return r.Path
}

// Fragment is one classified texture file on its way into consolidation:
// a candidate material name plus a single channel binding.
type Fragment struct {
	MeshScope     string
	CandidateName string
	Role          channel.Role
	Ref           TextureReference
	SourceFile    string
	FromUdim      bool
	LowConfidence bool
}

// Descriptor is a consolidated material: one mesh scope, one canonical name,
// at most one texture reference per channel role. Immutable once
// consolidation completes for a scan pass.
type Descriptor struct {
	MeshScope string                            `json:"meshScope"`
	Name      string                            `json:"name"`
	Channels  map[channel.Role]TextureReference `json:"channels"`
	// LowConfidence lists roles whose classification was a defaulted guess
	LowConfidence []channel.Role `json:"lowConfidence,omitempty"`
}

// SortedRoles returns the descriptor's channel roles in the canonical enum
// order, for deterministic iteration.
func (d *Descriptor) SortedRoles() []channel.Role {
	var roles []channel.Role
	for _, r := range channel.Roles {
		if _, ok := d.Channels[r]; ok {
			roles = append(roles, r)
		}
	}
	return roles
}

// SortDescriptors orders descriptors by scope then name, for stable output.
func SortDescriptors(descs []*Descriptor) {
	sort.Slice(descs, func(i, j int) bool {
		if descs[i].MeshScope != descs[j].MeshScope {
			return descs[i].MeshScope < descs[j].MeshScope
		}
		return descs[i].Name < descs[j].Name
	})
}
