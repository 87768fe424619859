package entity

type PatternType string

const (
	PatternPlain             PatternType = "plain"
	PatternAccentWall        PatternType = "accent-wall"
	PatternTwoTone           PatternType = "two-tone"
	PatternStripesHorizontal PatternType = "stripes-horizontal"
	PatternStripesVertical   PatternType = "stripes-vertical"
	PatternGeometric         PatternType = "geometric"
	PatternOmbre             PatternType = "ombre"
	PatternColorBlock        PatternType = "color-block"
	PatternWainscoting       PatternType = "wainscoting"
	PatternBorder            PatternType = "border"
	PatternTextured          PatternType = "textured"
)

// GenerationProfile is one synthesizer call's prompt and sampling settings.
// Prompt templates take the colour name and hex code, in that order.
type GenerationProfile struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Strength       float64 `json:"strength"`
	Guidance       float64 `json:"guidance"`
	Steps          int     `json:"steps"`
}

type PatternSpec struct {
	Type    PatternType       `json:"type"`
	Label   string            `json:"label"`
	Profile GenerationProfile `json:"profile"`
}

const basePreserve = "keep the exact room layout, perspective, lighting, shadows, furniture, windows, doors, ceiling and floor unchanged, photorealistic interior photograph"

const baseNegative = "new objects, extra furniture, people, text, watermark, distorted perspective, changed layout, blurry, cartoon, painting outside the wall, color bleeding onto furniture or ceiling"

// PlainProfile is used for the first synthesis phase of every request.
var PlainProfile = GenerationProfile{
	Prompt:         "the wall painted in a smooth solid matte %s paint (hex %s), even uniform coverage, exact color match, " + basePreserve,
	NegativePrompt: baseNegative + ", pattern, stripes, texture, gradient, different color",
	Strength:       0.95,
	Guidance:       12,
	Steps:          50,
}

var patternTable = []PatternSpec{
	{Type: PatternPlain, Label: "Plain", Profile: PlainProfile},
	{Type: PatternAccentWall, Label: "Accent wall", Profile: GenerationProfile{
		Prompt:         "a bold %s (hex %s) accent wall with crisp clean edges, the painted wall stands out as a feature wall, " + basePreserve,
		NegativePrompt: baseNegative + ", multiple accent walls, patterns",
		Strength:       0.75, Guidance: 10, Steps: 40,
	}},
	{Type: PatternTwoTone, Label: "Two-tone", Profile: GenerationProfile{
		Prompt:         "a two-tone wall, lower half in %s (hex %s) and upper half in a lighter tint of the same color, straight horizontal dividing line at one third height, " + basePreserve,
		NegativePrompt: baseNegative + ", uneven line, diagonal split, stripes",
		Strength:       0.7, Guidance: 10, Steps: 45,
	}},
	{Type: PatternStripesHorizontal, Label: "Horizontal stripes", Profile: GenerationProfile{
		Prompt:         "evenly spaced wide horizontal stripes alternating %s (hex %s) and a soft white, straight parallel painted lines, " + basePreserve,
		NegativePrompt: baseNegative + ", vertical stripes, wavy lines, uneven spacing",
		Strength:       0.7, Guidance: 11, Steps: 45,
	}},
	{Type: PatternStripesVertical, Label: "Vertical stripes", Profile: GenerationProfile{
		Prompt:         "evenly spaced wide vertical stripes alternating %s (hex %s) and a soft white, straight parallel painted lines, " + basePreserve,
		NegativePrompt: baseNegative + ", horizontal stripes, wavy lines, uneven spacing",
		Strength:       0.7, Guidance: 11, Steps: 45,
	}},
	{Type: PatternGeometric, Label: "Geometric", Profile: GenerationProfile{
		Prompt:         "a modern geometric painted wall mural of triangles and angled shapes in %s (hex %s) with lighter and darker tones, clean taped edges, " + basePreserve,
		NegativePrompt: baseNegative + ", organic shapes, curves, wallpaper print",
		Strength:       0.8, Guidance: 9, Steps: 50,
	}},
	{Type: PatternOmbre, Label: "Ombre", Profile: GenerationProfile{
		Prompt:         "a smooth vertical ombre gradient wall fading from deep %s (hex %s) at the bottom to a pale tint at the top, seamless blend, " + basePreserve,
		NegativePrompt: baseNegative + ", hard lines, stripes, banding",
		Strength:       0.75, Guidance: 9, Steps: 50,
	}},
	{Type: PatternColorBlock, Label: "Color block", Profile: GenerationProfile{
		Prompt:         "a color block painted wall with large rectangular blocks in %s (hex %s) and complementary neutral tones, sharp straight edges, " + basePreserve,
		NegativePrompt: baseNegative + ", small shapes, gradients, curves",
		Strength:       0.75, Guidance: 10, Steps: 45,
	}},
	{Type: PatternWainscoting, Label: "Wainscoting", Profile: GenerationProfile{
		Prompt:         "classic wainscoting panels on the lower third of the wall painted %s (hex %s) with a chair rail molding, upper wall in a soft matching tint, " + basePreserve,
		NegativePrompt: baseNegative + ", panels on ceiling, brick, tiles",
		Strength:       0.8, Guidance: 10, Steps: 50,
	}},
	{Type: PatternBorder, Label: "Border", Profile: GenerationProfile{
		Prompt:         "a painted decorative border band in %s (hex %s) running along the top edge of the wall near the ceiling, rest of the wall in a light neutral, " + basePreserve,
		NegativePrompt: baseNegative + ", wallpaper, multiple bands, floral print",
		Strength:       0.7, Guidance: 10, Steps: 45,
	}},
	{Type: PatternTextured, Label: "Textured", Profile: GenerationProfile{
		Prompt:         "a textured venetian plaster wall finish in %s (hex %s) with subtle trowel marks and soft tonal variation, " + basePreserve,
		NegativePrompt: baseNegative + ", stripes, geometric shapes, glossy plastic",
		Strength:       0.8, Guidance: 8, Steps: 50,
	}},
}

var patternIndex = func() map[PatternType]PatternSpec {
	index := make(map[PatternType]PatternSpec, len(patternTable))
	for _, p := range patternTable {
		index[p.Type] = p
	}
	return index
}()

func LookupPattern(t PatternType) (PatternSpec, bool) {
	p, ok := patternIndex[t]
	return p, ok
}

// Patterns returns a copy of the pattern table in display order.
func Patterns() []PatternSpec {
	out := make([]PatternSpec, len(patternTable))
	copy(out, patternTable)
	return out
}
