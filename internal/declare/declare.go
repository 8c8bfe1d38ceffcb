// Package declare reads MATERIALS.toml, the optional artist-authored
// declaration file at a scan root. Declarations pin a material name or a
// channel role for filenames the heuristics would otherwise misread, and
// take precedence over classification.
package declare

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"texforge/internal/channel"
	"texforge/internal/errors"
	"texforge/internal/paths"
)

// Rule pins classification results for matching filenames.
type Rule struct {
	// Match is a glob pattern (path.Match syntax) tested against the bare
	// filename, case-insensitively.
	Match string `toml:"match"`

	// Material forces the canonical material name (optional)
	Material string `toml:"material,omitempty"`

	// Role forces the channel role (optional)
	Role string `toml:"role,omitempty"`

	// Ignore excludes matching files from the scan entirely
	Ignore bool `toml:"ignore,omitempty"`
}

// File is the parsed MATERIALS.toml document.
type File struct {
	Version int    `toml:"version"`
	Rules   []Rule `toml:"rules"`
}

// Override is the resolved effect of declarations on one filename.
type Override struct {
	Material string
	Role     channel.Role
	HasRole  bool
	Ignore   bool
}

// Declarations holds the loaded rule set. The zero value matches nothing.
type Declarations struct {
	rules    []Rule
	roles    []channel.Role // parallel to rules; valid when rule.Role != ""
	Checksum string
}

// Load reads MATERIALS.toml from a scan root. A missing file is not an
// error: it returns an empty rule set.
func Load(scanRoot string) (*Declarations, error) {
	data, err := os.ReadFile(paths.DeclarationsPath(scanRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return &Declarations{}, nil
		}
		return nil, errors.New(errors.DeclarationInvalid, "cannot read MATERIALS.toml", err)
	}
	return Parse(data)
}

// Parse decodes and validates declaration content.
func Parse(data []byte) (*Declarations, error) {
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, errors.New(errors.DeclarationInvalid, "MATERIALS.toml is not valid TOML", err)
	}

	sum := sha256.Sum256(data)
	d := &Declarations{Checksum: hex.EncodeToString(sum[:])}

	for i, rule := range f.Rules {
		if rule.Match == "" {
			return nil, errors.New(errors.DeclarationInvalid,
				fmt.Sprintf("rule %d has no match pattern", i+1), nil)
		}
		if _, err := path.Match(rule.Match, "probe"); err != nil {
			return nil, errors.New(errors.DeclarationInvalid,
				fmt.Sprintf("rule %d: bad pattern %q", i+1, rule.Match), err)
		}
		var role channel.Role
		if rule.Role != "" {
			parsed, err := channel.ParseRole(rule.Role)
			if err != nil {
				return nil, errors.New(errors.DeclarationInvalid,
					fmt.Sprintf("rule %d: %v", i+1, err), nil)
			}
			role = parsed
		}
		d.rules = append(d.rules, rule)
		d.roles = append(d.roles, role)
	}
	return d, nil
}

// Empty reports whether no rules are loaded.
func (d *Declarations) Empty() bool {
	return d == nil || len(d.rules) == 0
}

// Lookup returns the override for a filename. First matching rule wins.
func (d *Declarations) Lookup(filename string) (Override, bool) {
	if d == nil {
		return Override{}, false
	}
	lower := strings.ToLower(filename)
	for i, rule := range d.rules {
		ok, _ := path.Match(strings.ToLower(rule.Match), lower)
		if !ok {
			continue
		}
		o := Override{
			Material: rule.Material,
			Ignore:   rule.Ignore,
		}
		if rule.Role != "" {
			o.Role = d.roles[i]
			o.HasRole = true
		}
		return o, true
	}
	return Override{}, false
}
