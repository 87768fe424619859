package visualizationService

import (
	"errors"
	"fmt"
	"testing"

	"PaintVisualizer/internal/api/visualization"
	"PaintVisualizer/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

func sampleCatalog() []entity.ColorSpec {
	return []entity.ColorSpec{
		{ID: "pink", Name: "Raspberry", HexCode: "#DB2777"},
		{ID: "teal", Name: "Lagoon", HexCode: "#0891B2"},
		{ID: "violet", Name: "Iris", HexCode: "#4F46E5"},
		{ID: "orange", Name: "Amber", HexCode: "#D97706"},
	}
}

func ids(colors []entity.ColorSpec) []string {
	out := make([]string, 0, len(colors))
	for _, c := range colors {
		out = append(out, c.ID)
	}
	return out
}

func TestRecommendPicksFirstMatchPerTargetHue(t *testing.T) {
	// #1F2937 sits at roughly 215 degrees: targets are 35, 245 and 185.
	got := Recommend("#1F2937", sampleCatalog())

	assert.Equal(t, []string{"orange", "violet", "teal"}, ids(got))
}

func TestRecommendEmptyCatalog(t *testing.T) {
	got := Recommend("#1F2937", nil)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRecommendInvalidBaseColor(t *testing.T) {
	got := Recommend("not-a-color", sampleCatalog())

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRecommendFallbackIsStableAndBounded(t *testing.T) {
	// Every entry sits at 120 degrees, far from the targets of pure red.
	catalog := make([]entity.ColorSpec, 0, 12)
	for i := 0; i < 12; i++ {
		catalog = append(catalog, entity.ColorSpec{
			ID:      fmt.Sprintf("green-%d", i),
			HexCode: fmt.Sprintf("#00%02X00", 0x40+i*0x10),
		})
	}

	first := Recommend("#FF0000", catalog)
	second := Recommend("#ff0000", catalog)

	require.Len(t, first, 3)
	assert.Equal(t, ids(first), ids(second))
	for _, c := range first {
		assert.Contains(t, ids(catalog[:10]), c.ID)
	}
}

func TestRecommendSkipsUnparsableCatalogEntries(t *testing.T) {
	catalog := append([]entity.ColorSpec{{ID: "broken", HexCode: "#XYZ"}}, sampleCatalog()...)

	got := Recommend("#1F2937", catalog)

	assert.Equal(t, []string{"orange", "violet", "teal"}, ids(got))
}

func TestHexToHSL(t *testing.T) {
	cases := []struct {
		hex     string
		h, s, l float64
	}{
		{"#FF0000", 0, 1, 0.5},
		{"#00FF00", 120, 1, 0.5},
		{"#00F", 240, 1, 0.5},
		{"#FFFFFF", 0, 0, 1},
		{"#000000", 0, 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.hex, func(t *testing.T) {
			h, s, l, ok := hexToHSL(tc.hex)
			require.True(t, ok)
			assert.InDelta(t, tc.h, h, 0.01)
			assert.InDelta(t, tc.s, s, 0.01)
			assert.InDelta(t, tc.l, l, 0.01)
		})
	}

	h, _, _, ok := hexToHSL("#1F2937")
	require.True(t, ok)
	assert.InDelta(t, 215, h, 0.5)

	for _, bad := range []string{"", "#12", "#GGGGGG", "#1234567"} {
		_, _, _, ok := hexToHSL(bad)
		assert.False(t, ok, bad)
	}
}

func TestNormalizeHex(t *testing.T) {
	got, ok := NormalizeHex("1f2937")
	require.True(t, ok)
	assert.Equal(t, "#1F2937", got)

	got, ok = NormalizeHex("#abc")
	require.True(t, ok)
	assert.Equal(t, "#AABBCC", got)

	_, ok = NormalizeHex("blue")
	assert.False(t, ok)
}

func TestRecommendForColor(t *testing.T) {
	f := newFixture(t)
	f.colors.colors = sampleCatalog()

	resp, err := f.svc.RecommendForColor(context.Background(), "1f2937")
	require.NoError(t, err)

	assert.Equal(t, "#1F2937", resp.Base)
	assert.Equal(t, []string{"orange", "violet", "teal"}, ids(resp.Recommendations))
}

func TestRecommendForColorRejectsInvalidHex(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RecommendForColor(context.Background(), "#nope")

	assert.ErrorIs(t, err, visualization.ErrInvalidColorHex)
}

func TestRecommendForColorSurfacesCatalogError(t *testing.T) {
	f := newFixture(t)
	f.colors.err = errors.New("connection refused")

	_, err := f.svc.RecommendForColor(context.Background(), "#1F2937")

	assert.EqualError(t, err, "connection refused")
}

func TestPatternsListsEveryPattern(t *testing.T) {
	f := newFixture(t)

	patterns := f.svc.Patterns()

	require.Len(t, patterns, 11)
	assert.Equal(t, entity.PatternPlain, patterns[0].Type)
}
