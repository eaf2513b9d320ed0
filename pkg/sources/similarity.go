package sources

import (
	"math"
	"strings"
	"time"

	"github.com/wolftrace/deaddrop/pkg/types"
)

const (
	temporalFullWindow = 30 * time.Minute
	temporalZeroWindow = 60 * time.Minute
	geoFullMeters      = 200.0
	geoZeroMeters      = 400.0
	minTokenLen        = 4
	earthRadiusMeters  = 6371000.0
)

// similarity is the per-component clustering score for a report pair
type similarity struct {
	Temporal float64
	Geo      float64
	Semantic float64
}

// Combined is the weighted clustering score
func (s similarity) Combined() float64 {
	return 0.3*s.Temporal + 0.3*s.Geo + 0.4*s.Semantic
}

// scorePair computes the three-component similarity between two report
// nodes. A missing timestamp or location on either side zeroes that
// component.
func scorePair(a, b *types.Node) similarity {
	var s similarity

	if ta, okA := a.Timestamp(); okA {
		if tb, okB := b.Timestamp(); okB {
			s.Temporal = temporalScore(ta, tb)
		}
	}
	if la := a.Location(); la != nil {
		if lb := b.Location(); lb != nil {
			s.Geo = geoScore(la, lb)
		}
	}
	s.Semantic = jaccard(tokenBag(a.TextBody()), tokenBag(b.TextBody()))
	return s
}

// temporalScore is 1.0 within 30 minutes, then decays linearly to 0
// over the next 30.
func temporalScore(a, b time.Time) float64 {
	delta := a.Sub(b)
	if delta < 0 {
		delta = -delta
	}
	if delta <= temporalFullWindow {
		return 1.0
	}
	if delta >= temporalZeroWindow {
		return 0
	}
	return 1.0 - float64(delta-temporalFullWindow)/float64(temporalZeroWindow-temporalFullWindow)
}

// geoScore is 1.0 within 200 meters, then decays linearly to 0 over
// the next 200.
func geoScore(a, b *types.Location) float64 {
	d := haversineMeters(a.Lat, a.Lng, b.Lat, b.Lng)
	if d <= geoFullMeters {
		return 1.0
	}
	if d >= geoZeroMeters {
		return 0
	}
	return 1.0 - (d-geoFullMeters)/(geoZeroMeters-geoFullMeters)
}

// haversineMeters is the great-circle distance between two points
func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// tokenBag lowercases the text and keeps words longer than 3 chars
func tokenBag(text string) map[string]struct{} {
	bag := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:\"'()[]")
		if len(w) >= minTokenLen {
			bag[w] = struct{}{}
		}
	}
	return bag
}

// jaccard is |A∩B| / |A∪B|; empty bags score 0
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
