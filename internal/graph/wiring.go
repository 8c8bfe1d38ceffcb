package graph

import "texforge/internal/channel"

// Colorspace values carried as sampler params. The backend maps them to
// whatever its host calls them.
const (
	ColorspaceSRGB = "sRGB"
	ColorspaceRaw  = "Raw"
)

// directWiring describes a role wired straight into root-material input
// slots through its own texture sampler.
type directWiring struct {
	// Slots are the root inputs the sampler feeds. Translucency feeds two.
	Slots []string
	// Colorspace for the sampler
	Colorspace string
	// SingleChannel marks scalar maps read from one color channel
	SingleChannel bool
}

// directWirings is the role→slot table for everything except Normal, Bump
// and Displacement, which route through intermediate nodes. Order of
// assembly follows channel.Roles, not this map.
var directWirings = map[channel.Role]directWiring{
	channel.RoleBaseColor: {
		Slots:      []string{"base_color"},
		Colorspace: ColorspaceSRGB,
	},
	channel.RoleRoughness: {
		Slots:         []string{"refl_roughness"},
		Colorspace:    ColorspaceRaw,
		SingleChannel: true,
	},
	channel.RoleMetallic: {
		Slots:         []string{"metalness"},
		Colorspace:    ColorspaceRaw,
		SingleChannel: true,
	},
	channel.RoleEmission: {
		Slots:      []string{"emission_color"},
		Colorspace: ColorspaceSRGB,
	},
	channel.RoleAO: {
		Slots:         []string{"overall_color"},
		Colorspace:    ColorspaceRaw,
		SingleChannel: true,
	},
	channel.RoleTranslucency: {
		Slots:      []string{"transl_color", "transl_weight"},
		Colorspace: ColorspaceSRGB,
	},
	channel.RoleAlpha: {
		Slots:      []string{"opacity_color"},
		Colorspace: ColorspaceRaw,
	},
}

// Root slots for the routed roles.
const (
	slotBumpInput    = "bump_input"
	slotDisplacement = "displacement"
	slotOutput       = "material"
)

// BumpMap node slots and modes. Normal and Bump share one BumpMap node;
// when both are present the normal map takes the primary input.
const (
	slotBumpPrimary   = "input"
	slotBumpSecondary = "input2"

	bumpModeParam    = "input_type"
	bumpModeBump     = "bump"
	bumpModeNormal   = "normal_tangent"
	displacementSlot = "texmap"
)
