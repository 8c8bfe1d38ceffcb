// Package channel classifies texture filenames into shading channel roles.
//
// Classification runs on names that already had their UDIM fragment stripped.
// Two exact-substring checks (alpha-like and translucency-like keywords) run
// before the generic keyword table so that a name like "plant_alpha" cannot
// fall through to base color. The keyword table is then evaluated role by
// role in a fixed, configured order; the first role whose keyword list
// matches wins.
package channel

import (
	"fmt"
	"regexp"
	"strings"

	"texforge/internal/errors"
)

// Role is the shading purpose of a texture. Closed enum.
type Role string

const (
	// RoleBaseColor for albedo/diffuse color maps
	RoleBaseColor Role = "basecolor"
	// RoleRoughness for reflection roughness maps
	RoleRoughness Role = "roughness"
	// RoleMetallic for metalness maps
	RoleMetallic Role = "metallic"
	// RoleNormal for tangent-space normal maps
	RoleNormal Role = "normal"
	// RoleBump for height-based bump maps
	RoleBump Role = "bump"
	// RoleDisplacement for displacement/height maps
	RoleDisplacement Role = "displacement"
	// RoleEmission for emissive color maps
	RoleEmission Role = "emission"
	// RoleAO for ambient occlusion maps
	RoleAO Role = "ao"
	// RoleTranslucency for translucency/subsurface maps
	RoleTranslucency Role = "translucency"
	// RoleAlpha for opacity/transparency maps
	RoleAlpha Role = "alpha"
)

// Roles lists every valid role.
var Roles = []Role{
	RoleBaseColor, RoleRoughness, RoleMetallic, RoleNormal, RoleBump,
	RoleDisplacement, RoleEmission, RoleAO, RoleTranslucency, RoleAlpha,
}

// ParseRole validates a role name from configuration or storage.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown channel role %q", s)
}

// Classification is the outcome of classifying one filename.
type Classification struct {
	// Role is the resolved channel role; empty when Unclassified
	Role Role
	// MatchedKeyword is the keyword that produced the match, empty when the
	// role came from a default or an exact-substring precedence check
	MatchedKeyword string
	// LowConfidence marks a base-color default applied because nothing matched
	LowConfidence bool
	// Unclassified marks files that are not classifiable texture images
	Unclassified bool
}

// Classifier maps UDIM-stripped filenames to channel roles.
// Safe for concurrent use: all state is built at construction time.
type Classifier struct {
	order      []Role
	keywords   map[Role][]string
	bounded    map[string]*regexp.Regexp // keyword -> boundary matcher
	extensions map[string]bool
	strict     bool
}

// NewClassifier builds a classifier from a role order, a role→keyword table,
// and the recognized image extensions. strict disables the base-color default
// for unmatched images.
func NewClassifier(order []string, keywords map[string][]string, extensions []string, strict bool) (*Classifier, error) {
	c := &Classifier{
		keywords:   make(map[Role][]string, len(keywords)),
		bounded:    make(map[string]*regexp.Regexp),
		extensions: make(map[string]bool, len(extensions)),
		strict:     strict,
	}
	for _, ext := range extensions {
		c.extensions[strings.ToLower(ext)] = true
	}
	c.compileBoundary("sss")
	for _, name := range order {
		role, err := ParseRole(name)
		if err != nil {
			return nil, errors.New(errors.ConfigInvalid, "invalid channel order", err)
		}
		c.order = append(c.order, role)
	}
	for name, kws := range keywords {
		role, err := ParseRole(name)
		if err != nil {
			return nil, errors.New(errors.ConfigInvalid, "invalid keyword table", err)
		}
		lowered := make([]string, len(kws))
		for i, kw := range kws {
			lowered[i] = strings.ToLower(kw)
			c.compileBoundary(lowered[i])
		}
		c.keywords[role] = lowered
	}
	return c, nil
}

// compileBoundary precompiles the boundary matcher for one keyword: the
// keyword immediately after a separator at the end of the name, or between
// two separators anywhere in the name.
func (c *Classifier) compileBoundary(kw string) {
	if _, ok := c.bounded[kw]; ok {
		return
	}
	quoted := regexp.QuoteMeta(kw)
	c.bounded[kw] = regexp.MustCompile(`[._]` + quoted + `$|[._]` + quoted + `[._]`)
}

// alphaSubstrings and translucencySubstrings are checked by plain substring
// containment before the keyword table. Precedence rule: "plant_alpha" must
// classify as alpha even though nothing else in the name matches.
var alphaSubstrings = []string{"alpha", "opacity", "transparency"}

// translucen covers translucency and translucent in one check.
var translucencySubstrings = []string{"translucen"}

// Classify maps a filename (extension still attached, UDIM fragment already
// stripped) to a channel role.
func (c *Classifier) Classify(filename string) Classification {
	ext := strings.ToLower(extOf(filename))
	stem := strings.TrimSuffix(filename, extOf(filename))
	lower := strings.ToLower(stem)

	if !c.extensions[ext] {
		return Classification{Unclassified: true}
	}

	for _, sub := range alphaSubstrings {
		if strings.Contains(lower, sub) {
			return Classification{Role: RoleAlpha}
		}
	}
	for _, sub := range translucencySubstrings {
		if strings.Contains(lower, sub) {
			return Classification{Role: RoleTranslucency}
		}
	}
	if c.bounded["sss"].MatchString(lower) {
		return Classification{Role: RoleTranslucency, MatchedKeyword: "sss"}
	}

	for _, role := range c.order {
		for _, kw := range c.keywords[role] {
			if c.bounded[kw].MatchString(lower) {
				return Classification{Role: role, MatchedKeyword: kw}
			}
		}
	}

	if c.strict {
		return Classification{Unclassified: true}
	}
	return Classification{Role: RoleBaseColor, LowConfidence: true}
}

func extOf(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return ""
	}
	return filename[idx:]
}
