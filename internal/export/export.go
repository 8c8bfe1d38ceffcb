// Package export writes scan results to disk as YAML manifests, one
// document per material, optionally bundled into a single gzip archive.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
	"gopkg.in/yaml.v3"

	"texforge/internal/errors"
	"texforge/internal/material"
)

// Manifest is the on-disk form of one material descriptor.
type Manifest struct {
	Material      string            `yaml:"material"`
	MeshScope     string            `yaml:"meshScope"`
	LowConfidence []string          `yaml:"lowConfidence,omitempty"`
	Channels      []ChannelManifest `yaml:"channels"`
	ExportedAt    time.Time         `yaml:"exportedAt"`
}

// ChannelManifest records one classified texture assignment.
type ChannelManifest struct {
	Role      string `yaml:"role"`
	Kind      string `yaml:"kind"` // file or udim
	Location  string `yaml:"location"`
	Directory string `yaml:"directory,omitempty"`
}

// FromDescriptor converts a descriptor into its manifest form. Channel
// order follows the canonical role order.
func FromDescriptor(d *material.Descriptor) Manifest {
	m := Manifest{
		Material:   d.Name,
		MeshScope:  d.MeshScope,
		ExportedAt: time.Now().UTC(),
	}
	for _, r := range d.LowConfidence {
		m.LowConfidence = append(m.LowConfidence, string(r))
	}
	for _, role := range d.SortedRoles() {
		ref := d.Channels[role]
		cm := ChannelManifest{
			Role:     string(role),
			Kind:     string(ref.Kind),
			Location: ref.Location(),
		}
		if ref.Kind == material.RefUdimSequence {
			cm.Directory = ref.Directory
		}
		m.Channels = append(m.Channels, cm)
	}
	return m
}

// WriteDir writes one YAML file per material into outDir, named
// <meshScope>__<material>.yaml. Returns the written paths.
func WriteDir(outDir string, descs []*material.Descriptor) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, errors.New(errors.InternalError, "cannot create export directory", err)
	}
	var written []string
	for _, d := range descs {
		data, err := yaml.Marshal(FromDescriptor(d))
		if err != nil {
			return written, errors.New(errors.InternalError,
				fmt.Sprintf("cannot encode manifest for %q", d.Name), err)
		}
		path := filepath.Join(outDir, fmt.Sprintf("%s__%s.yaml", d.MeshScope, d.Name))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, errors.New(errors.InternalError,
				fmt.Sprintf("cannot write manifest for %q", d.Name), err)
		}
		written = append(written, path)
	}
	return written, nil
}

// WriteBundle writes every manifest as a multi-document YAML stream,
// gzip-compressed, to path. Materials appear in descriptor order.
func WriteBundle(path string, descs []*material.Descriptor) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.New(errors.InternalError, "cannot create export bundle", err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	enc := yaml.NewEncoder(zw)
	for _, d := range descs {
		if err := enc.Encode(FromDescriptor(d)); err != nil {
			return errors.New(errors.InternalError,
				fmt.Sprintf("cannot encode manifest for %q", d.Name), err)
		}
	}
	if err := enc.Close(); err != nil {
		return errors.New(errors.InternalError, "cannot finalize export bundle", err)
	}
	if err := zw.Close(); err != nil {
		return errors.New(errors.InternalError, "cannot compress export bundle", err)
	}
	return f.Close()
}

// ReadBundle decodes a bundle written by WriteBundle.
func ReadBundle(path string) ([]Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(errors.InternalError, "cannot open export bundle", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.New(errors.InternalError, "export bundle is not gzip", err)
	}
	defer zr.Close()

	var out []Manifest
	dec := yaml.NewDecoder(zr)
	for {
		var m Manifest
		if err := dec.Decode(&m); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.New(errors.InternalError, "export bundle is corrupt", err)
		}
		out = append(out, m)
	}
	return out, nil
}
