package visualizationService

import (
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"strings"

	"PaintVisualizer/internal/api/visualization"
	"PaintVisualizer/internal/entity"
	contextPkg "PaintVisualizer/pkg/context"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	hueTolerance      = 45.0
	fallbackPoolLimit = 10
)

// recommendationOffsets are complementary, analogous +30 and analogous -30.
var recommendationOffsets = []float64{180, 30, -30}

func (s *visualizationService) Recommend(colorHex string, catalog []entity.ColorSpec) []entity.ColorSpec {
	return Recommend(colorHex, catalog)
}

// Recommend picks, for each target hue, the first catalog entry within 45
// degrees. With no match the slot takes a stable pseudo-random entry from the
// first ten. An empty catalog or an unparsable base colour yields no picks.
func Recommend(colorHex string, catalog []entity.ColorSpec) []entity.ColorSpec {
	out := make([]entity.ColorSpec, 0, len(recommendationOffsets))
	if len(catalog) == 0 {
		return out
	}

	baseHue, _, _, ok := hexToHSL(colorHex)
	if !ok {
		return out
	}

	for slot, offset := range recommendationOffsets {
		target := math.Mod(baseHue+offset+360, 360)
		if match, found := firstWithinHue(catalog, target); found {
			out = append(out, match)
			continue
		}
		out = append(out, catalog[fallbackIndex(colorHex, slot, len(catalog))])
	}
	return out
}

func firstWithinHue(catalog []entity.ColorSpec, target float64) (entity.ColorSpec, bool) {
	for _, c := range catalog {
		hue, _, _, ok := hexToHSL(c.HexCode)
		if !ok {
			continue
		}
		if hueDistance(hue, target) <= hueTolerance {
			return c, true
		}
	}
	return entity.ColorSpec{}, false
}

func fallbackIndex(colorHex string, slot, size int) int {
	pool := size
	if pool > fallbackPoolLimit {
		pool = fallbackPoolLimit
	}
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", strings.ToUpper(strings.TrimPrefix(colorHex, "#")), slot)
	return int(h.Sum32() % uint32(pool))
}

func hueDistance(a, b float64) float64 {
	d := math.Abs(a - b)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// hexToHSL parses #RRGGBB or #RGB and returns hue in degrees with saturation
// and lightness in [0,1].
func hexToHSL(hex string) (float64, float64, float64, bool) {
	r, g, b, ok := parseHex(hex)
	if !ok {
		return 0, 0, 0, false
	}

	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	hi := math.Max(rf, math.Max(gf, bf))
	lo := math.Min(rf, math.Min(gf, bf))
	l := (hi + lo) / 2

	if hi == lo {
		return 0, 0, l, true
	}

	d := hi - lo
	var sat float64
	if l > 0.5 {
		sat = d / (2 - hi - lo)
	} else {
		sat = d / (hi + lo)
	}

	var h float64
	switch hi {
	case rf:
		h = (gf - bf) / d
		if gf < bf {
			h += 6
		}
	case gf:
		h = (bf-rf)/d + 2
	default:
		h = (rf-gf)/d + 4
	}

	return h * 60, sat, l, true
}

func parseHex(hex string) (uint8, uint8, uint8, bool) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0, 0, 0, false
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), true
}

// NormalizeHex returns the colour as #RRGGBB, or false when it does not parse.
func NormalizeHex(hex string) (string, bool) {
	r, g, b, ok := parseHex(hex)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("#%02X%02X%02X", r, g, b), true
}

func (s *visualizationService) RecommendForColor(ctx context.Context, colorHex string) (*visualization.RecommendationResponse, error) {
	base, ok := NormalizeHex(colorHex)
	if !ok {
		return nil, visualization.ErrInvalidColorHex
	}

	catalog, err := s.ListColors(ctx, visualization.ColorFilter{})
	if err != nil {
		return nil, err
	}

	return &visualization.RecommendationResponse{
		Base:            base,
		Recommendations: Recommend(base, catalog),
	}, nil
}

// recommendFromCatalog is the pipeline's side branch: catalog failures only
// cost the recommendations.
func (s *visualizationService) recommendFromCatalog(ctx context.Context, colorHex string) []entity.ColorSpec {
	catalog, err := s.ListColors(ctx, visualization.ColorFilter{})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Warn("Catalog unavailable, skipping recommendations")
		return []entity.ColorSpec{}
	}
	return Recommend(colorHex, catalog)
}

func (s *visualizationService) ListColors(ctx context.Context, filter visualization.ColorFilter) ([]entity.ColorSpec, error) {
	if s.repository == nil {
		return []entity.ColorSpec{}, nil
	}

	repo, err := s.repository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return nil, err
	}

	return repo.Colors.ListColors(ctx, filter)
}

func (s *visualizationService) Patterns() []entity.PatternSpec {
	return entity.Patterns()
}
