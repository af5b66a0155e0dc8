package matcher

import (
	"github.com/sparkmatch/engine/internal/db"
	"github.com/sparkmatch/engine/internal/geo"
)

// Filter applies a seeker's eligibility checks to candidates. The
// seeker's derived state (location, rules, exclusion sets) is computed
// once at construction and reused across the whole pool.
type Filter struct {
	seeker  *db.Profile
	loc     geo.Point
	rules   db.DealbreakerRules
	blocked map[uint64]struct{}
	swiped  map[uint64]struct{}
}

// NewFilter builds a filter for one seeker. blocked must already be
// bidirectional (either direction hides the candidate); swiped holds
// target ids excluded by the reswipe policy.
func NewFilter(seeker *db.Profile, blocked, swiped map[uint64]struct{}) *Filter {
	if blocked == nil {
		blocked = map[uint64]struct{}{}
	}
	if swiped == nil {
		swiped = map[uint64]struct{}{}
	}
	return &Filter{
		seeker:  seeker,
		loc:     point(seeker),
		rules:   seeker.Dealbreakers,
		blocked: blocked,
		swiped:  swiped,
	}
}

// Eligible runs every rejection rule against one candidate.
func (f *Filter) Eligible(c *db.Profile) bool {
	if c.ID == f.seeker.ID || !c.Active {
		return false
	}
	if _, ok := f.blocked[c.ID]; ok {
		return false
	}
	if _, ok := f.swiped[c.ID]; ok {
		return false
	}
	if !genderMatch(f.seeker.InterestedIn, c.Gender) || !genderMatch(c.InterestedIn, f.seeker.Gender) {
		return false
	}
	if c.Age < f.seeker.AgeMin || (f.seeker.AgeMax > 0 && c.Age > f.seeker.AgeMax) {
		return false
	}
	// Distance only filters when both sides have a real location.
	// A missing location is not distance zero.
	if d, known := geo.Between(f.loc, point(c)); known {
		if f.seeker.MaxDistanceKM > 0 && d > f.seeker.MaxDistanceKM {
			return false
		}
	}
	return EvaluateDealbreakers(f.rules, f.seeker, c)
}

// Apply filters a pool, preserving input order.
func (f *Filter) Apply(pool []*db.Profile) []*db.Profile {
	out := make([]*db.Profile, 0, len(pool))
	for _, c := range pool {
		if f.Eligible(c) {
			out = append(out, c)
		}
	}
	return out
}

func genderMatch(interestedIn, gender string) bool {
	return interestedIn == "" || interestedIn == "everyone" || interestedIn == gender
}
