package matcher

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sparkmatch/engine/internal/config"
	"github.com/sparkmatch/engine/internal/db"
	"github.com/sparkmatch/engine/internal/geo"
)

// ReplyStats summarize a pair's historical message-reply behavior.
// Supplied by a messaging collaborator; Known=false when the pair has
// no history yet.
type ReplyStats struct {
	WeekReplyRate  float64
	MonthReplyRate float64
	Known          bool
}

// Factors are the sub-scores, each in [0,1].
type Factors struct {
	Distance       float64 `json:"distance"`
	Age            float64 `json:"age"`
	Interests      float64 `json:"interests"`
	Lifestyle      float64 `json:"lifestyle"`
	Pace           float64 `json:"pace"`
	Responsiveness float64 `json:"responsiveness"`
}

// Quality is a composite match-quality result.
type Quality struct {
	Score      float64  `json:"score"` // [0,100]
	Factors    Factors  `json:"factors"`
	Highlights []string `json:"highlights"`
}

// Scorer computes weighted compatibility between a seeker and a
// candidate. Construction fails unless the weights sum to 1.0, so a
// misweighted scorer is a configuration error rather than a silent
// scoring distortion.
type Scorer struct {
	weights   config.Weights
	respWeek  float64
	respMonth float64
}

// NewScorer validates weights and thresholds.
func NewScorer(w config.Weights, weekThreshold, monthThreshold float64) (*Scorer, error) {
	if math.Abs(w.Sum()-1.0) > 1e-9 {
		return nil, fmt.Errorf("scorer weights must sum to 1.0, got %v", w.Sum())
	}
	if weekThreshold <= 0 {
		weekThreshold = 1
	}
	if monthThreshold <= 0 {
		monthThreshold = 1
	}
	return &Scorer{weights: w, respWeek: weekThreshold, respMonth: monthThreshold}, nil
}

// Score computes the composite quality of candidate from the seeker's
// side. Pure: same inputs always give the same output.
func (s *Scorer) Score(seeker, candidate *db.Profile, stats ReplyStats) Quality {
	f := Factors{
		Distance:       s.distanceScore(seeker, candidate),
		Age:            s.ageScore(seeker, candidate),
		Interests:      jaccard(seeker.Interests, candidate.Interests),
		Lifestyle:      s.lifestyleScore(seeker, candidate),
		Pace:           paceScore(seeker.Pace, candidate.Pace),
		Responsiveness: s.responsivenessScore(stats),
	}

	total := f.Distance*s.weights.Distance +
		f.Age*s.weights.Age +
		f.Interests*s.weights.Interests +
		f.Lifestyle*s.weights.Lifestyle +
		f.Pace*s.weights.Pace +
		f.Responsiveness*s.weights.Responsiveness

	return Quality{
		Score:      clamp(total*100, 0, 100),
		Factors:    f,
		Highlights: s.highlights(seeker, candidate, f),
	}
}

// distanceScore decays exponentially with distance, using the seeker's
// max-distance preference as the decay reference. An unknown distance
// (either side without a location) scores neutral rather than treating
// the origin as distance zero.
func (s *Scorer) distanceScore(seeker, candidate *db.Profile) float64 {
	d, known := geo.Between(point(seeker), point(candidate))
	if !known {
		return 0.5
	}
	ref := seeker.MaxDistanceKM
	if ref <= 0 {
		ref = 50
	}
	return clamp(math.Exp(-d/ref), 0, 1)
}

// ageScore is 1.0 inside the seeker's preferred range and falls off in
// a bell curve outside it.
func (s *Scorer) ageScore(seeker, candidate *db.Profile) float64 {
	if candidate.Age == 0 {
		return 0.5
	}
	lo, hi := seeker.AgeMin, seeker.AgeMax
	if lo <= 0 && hi <= 0 {
		return 1
	}
	var gap float64
	switch {
	case candidate.Age < lo:
		gap = float64(lo - candidate.Age)
	case hi > 0 && candidate.Age > hi:
		gap = float64(candidate.Age - hi)
	default:
		return 1
	}
	return math.Exp(-(gap * gap) / 18)
}

// jaccard is intersection-over-union of the two interest sets.
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.5
	}
	set := make(map[string]struct{}, len(a))
	for _, it := range a {
		set[it] = struct{}{}
	}
	matches := 0
	seen := make(map[string]struct{}, len(b))
	for _, it := range b {
		if _, dup := seen[it]; dup {
			continue
		}
		seen[it] = struct{}{}
		if _, ok := set[it]; ok {
			matches++
		}
	}
	union := len(set) + len(seen) - matches
	if union == 0 {
		return 0
	}
	return float64(matches) / float64(union)
}

// lifestyleScore gives partial credit per axis where both sides
// disclosed a value. With nothing disclosed on either side the factor
// is neutral.
func (s *Scorer) lifestyleScore(seeker, candidate *db.Profile) float64 {
	type axis struct{ a, b string }
	axes := []axis{
		{seeker.Smoking, candidate.Smoking},
		{seeker.Drinking, candidate.Drinking},
		{seeker.KidsStance, candidate.KidsStance},
		{seeker.RelationshipGoal, candidate.RelationshipGoal},
	}

	var sum float64
	var counted int
	for _, ax := range axes {
		if ax.a == "" || ax.b == "" {
			continue
		}
		counted++
		if ax.a == ax.b {
			sum += 1
		} else if ax.a == "sometimes" || ax.b == "sometimes" || ax.a == "open" || ax.b == "open" {
			sum += 0.5
		}
	}
	if counted == 0 {
		return 0.5
	}
	return sum / float64(counted)
}

var paceOrder = map[string]int{"slow": 0, "steady": 1, "fast": 2}

// paceScore rewards identical communication pace, gives half credit to
// adjacent paces, and nothing to opposites.
func paceScore(a, b string) float64 {
	ia, okA := paceOrder[a]
	ib, okB := paceOrder[b]
	if !okA || !okB {
		return 0.5
	}
	switch diff := abs(ia - ib); diff {
	case 0:
		return 1
	case 1:
		return 0.5
	default:
		return 0
	}
}

// responsivenessScore compares observed reply rates against the
// configured weekly and monthly thresholds.
func (s *Scorer) responsivenessScore(stats ReplyStats) float64 {
	if !stats.Known {
		return 0.5
	}
	week := clamp(stats.WeekReplyRate/s.respWeek, 0, 1)
	month := clamp(stats.MonthReplyRate/s.respMonth, 0, 1)
	return (week + month) / 2
}

// highlights builds the ranked display strings for a pair. Computed
// from the same inputs as the score, never random.
func (s *Scorer) highlights(seeker, candidate *db.Profile, f Factors) []string {
	var out []string

	shared := sharedInterests(seeker.Interests, candidate.Interests)
	for i, it := range shared {
		if i >= 3 {
			break
		}
		out = append(out, "You both enjoy "+it)
	}

	if d, known := geo.Between(point(seeker), point(candidate)); known && d <= 10 {
		out = append(out, "Lives nearby")
	}

	if seeker.RelationshipGoal != "" && seeker.RelationshipGoal == candidate.RelationshipGoal {
		out = append(out, "Looking for the same thing")
	}

	if f.Pace == 1 && seeker.Pace != "" {
		out = append(out, "Matches your pace")
	}

	return out
}

func sharedInterests(a, b []string) []string {
	set := make(map[string]struct{}, len(a))
	for _, it := range a {
		set[it] = struct{}{}
	}
	var shared []string
	for _, it := range b {
		if _, ok := set[it]; ok {
			shared = append(shared, it)
			delete(set, it)
		}
	}
	sort.Strings(shared)
	return shared
}

// SwipeVelocity reports swipes per minute by linear extrapolation,
// e.g. 5 swipes in 10 seconds is 30/min.
func SwipeVelocity(swipeCount int, elapsed time.Duration) float64 {
	if elapsed <= 0 || swipeCount <= 0 {
		return 0
	}
	return float64(swipeCount) / elapsed.Minutes()
}

// point reads a profile's location. Coordinates off the globe are
// treated as unset rather than fed into the distance math.
func point(p *db.Profile) geo.Point {
	return geo.Point{
		Lat: p.Lat,
		Lon: p.Lon,
		Set: p.HasLocation && geo.ValidCoords(p.Lat, p.Lon),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
