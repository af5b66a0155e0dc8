package matcher

import "github.com/sparkmatch/engine/internal/db"

// EvaluateDealbreakers reports whether a candidate passes the seeker's
// hard filters.
//
// Policy is fail-closed on every axis: a rule that is configured while
// the candidate left the corresponding field undisclosed rejects the
// candidate. Unconfigured rules never filter.
func EvaluateDealbreakers(rules db.DealbreakerRules, seeker, candidate *db.Profile) bool {
	if rules.NoSmoking {
		if candidate.Smoking == "" || candidate.Smoking != "no" {
			return false
		}
	}

	if rules.NoDrinking {
		if candidate.Drinking == "" || candidate.Drinking != "no" {
			return false
		}
	}

	if rules.KidsStance != "" {
		if candidate.KidsStance == "" || candidate.KidsStance != rules.KidsStance {
			return false
		}
	}

	if rules.RelationshipGoal != "" {
		if candidate.RelationshipGoal == "" || candidate.RelationshipGoal != rules.RelationshipGoal {
			return false
		}
	}

	if rules.MinHeightCM > 0 || rules.MaxHeightCM > 0 {
		if candidate.HeightCM == 0 {
			return false
		}
		if rules.MinHeightCM > 0 && candidate.HeightCM < rules.MinHeightCM {
			return false
		}
		if rules.MaxHeightCM > 0 && candidate.HeightCM > rules.MaxHeightCM {
			return false
		}
	}

	if rules.MaxAgeGap > 0 {
		if candidate.Age == 0 || seeker.Age == 0 {
			return false
		}
		gap := seeker.Age - candidate.Age
		if gap < 0 {
			gap = -gap
		}
		if gap > rules.MaxAgeGap {
			return false
		}
	}

	return true
}
