package material

import (
	"testing"

	"texforge/internal/channel"
	"texforge/internal/udim"
)

var testKeywords = map[string][]string{
	"basecolor":    {"basecolor", "diffuse", "albedo", "col", "color", "diff"},
	"roughness":    {"roughness", "rough", "rgh"},
	"metallic":     {"metallic", "metal", "metalness", "mtl"},
	"normal":       {"normal", "nrm", "norm"},
	"bump":         {"bump", "bmp"},
	"displacement": {"displacement", "disp", "height"},
	"emission":     {"emission", "emissive"},
	"ao":           {"ao", "ambient", "occlusion"},
	"translucency": {"translucency", "translucent", "sss"},
	"alpha":        {"alpha", "opacity", "transparency"},
}

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor(testKeywords)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	return e
}

func TestExtract(t *testing.T) {
	e := newTestExtractor(t)
	resolver, err := udim.NewResolver(nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	tests := []struct {
		filename string
		cls      channel.Classification
		want     string
	}{
		{
			filename: "material_basecolor.png",
			cls:      channel.Classification{Role: channel.RoleBaseColor, MatchedKeyword: "basecolor"},
			want:     "material",
		},
		{
			filename: "Wood_Floor_Roughness.exr",
			cls:      channel.Classification{Role: channel.RoleRoughness, MatchedKeyword: "roughness"},
			want:     "Wood_Floor",
		},
		{
			// Keyword mid-name keeps the suffix.
			filename: "wood_rough_v2.png",
			cls:      channel.Classification{Role: channel.RoleRoughness, MatchedKeyword: "rough"},
			want:     "wood_v2",
		},
		{
			// UDIM tile stripped first, then the keyword.
			filename: "Bar_combo_Color.1001.exr",
			cls:      channel.Classification{Role: channel.RoleBaseColor, MatchedKeyword: "color"},
			want:     "Bar_combo",
		},
		{
			filename: "rock_1001_normal.png",
			cls:      channel.Classification{Role: channel.RoleNormal, MatchedKeyword: "normal"},
			want:     "rock",
		},
		{
			// Precedence-matched alpha carries no table keyword; the role's
			// keyword list still cleans the name.
			filename: "plant_alpha.png",
			cls:      channel.Classification{Role: channel.RoleAlpha},
			want:     "plant",
		},
		{
			// Defaulted base color with no keyword anywhere: name survives whole.
			filename: "driftwood.png",
			cls:      channel.Classification{Role: channel.RoleBaseColor, LowConfidence: true},
			want:     "driftwood",
		},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			res := resolver.Resolve(tt.filename)
			got := e.Extract(tt.filename, res, tt.cls)
			if got != tt.want {
				t.Errorf("Extract(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}
