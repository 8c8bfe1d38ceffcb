package material

import (
	"fmt"
	"regexp"

	"texforge/internal/channel"
	"texforge/internal/errors"
	"texforge/internal/report"
)

// Leftover tile markers surviving name extraction: an isolated 4-digit run,
// optionally with one trailing letter, bounded by separators on both sides
// or terminating the name after a separator. Never matched at the very start
// of a name, so digit-leading material names stay intact.
var (
	reTileMid = regexp.MustCompile(`^(.+?)([._])[0-9]{4}[a-zA-Z]?([._].*)$`)
	reTileEnd = regexp.MustCompile(`^(.+?)[._][0-9]{4}[a-zA-Z]?$`)
)

// normalizeCandidate strips leftover tile markers from a candidate name.
// Only applied to names derived from UDIM-member files; a plain file with
// digits in its name is never rewritten.
func normalizeCandidate(name string) string {
	for {
		if m := reTileMid.FindStringSubmatch(name); m != nil {
			name = m[1] + m[3]
			continue
		}
		if m := reTileEnd.FindStringSubmatch(name); m != nil {
			name = m[1]
			continue
		}
		return name
	}
}

// group accumulates fragments that will form one descriptor.
type group struct {
	scope string
	name  string
	frags []Fragment
}

// Consolidate merges classified fragments into material descriptors.
//
// Fragments group by (meshScope, candidateName) first; groups containing
// UDIM-derived fragments are then re-keyed with leftover tile markers
// stripped, merging per-tile splits of one material. Merging never crosses
// mesh scopes, even on exact name collision. When two files claim the same
// role in one final group, the first-encountered reference wins and a
// duplicate-role warning is recorded.
func Consolidate(frags []Fragment) ([]*Descriptor, []report.Diagnostic) {
	var order []string
	groups := make(map[string]*group)

	for _, f := range frags {
		name := f.CandidateName
		if f.FromUdim {
			name = normalizeCandidate(name)
		}
		key := f.MeshScope + "\x00" + name
		g, ok := groups[key]
		if !ok {
			g = &group{scope: f.MeshScope, name: name}
			groups[key] = g
			order = append(order, key)
		}
		g.frags = append(g.frags, f)
	}

	var descs []*Descriptor
	var diags []report.Diagnostic

	for _, key := range order {
		g := groups[key]
		desc := &Descriptor{
			MeshScope: g.scope,
			Name:      g.name,
			Channels:  make(map[channel.Role]TextureReference),
		}
		for _, f := range g.frags {
			if existing, ok := desc.Channels[f.Role]; ok {
				diags = append(diags, report.Diagnostic{
					Severity: report.SeverityWarning,
					Code:     errors.DuplicateRole,
					Message: fmt.Sprintf("channel %s already bound to %s; ignoring %s",
						f.Role, existing.Location(), f.SourceFile),
					File:     f.SourceFile,
					Material: g.name,
					Scope:    g.scope,
				})
				continue
			}
			desc.Channels[f.Role] = f.Ref
			if f.LowConfidence {
				desc.LowConfidence = append(desc.LowConfidence, f.Role)
			}
		}
		descs = append(descs, desc)
	}

	SortDescriptors(descs)
	return descs, diags
}
