package matcher_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sparkmatch/engine/internal/db"
	"github.com/sparkmatch/engine/internal/matcher"
)

// Every axis is fail-closed: a configured rule plus an undisclosed
// candidate field rejects the candidate.
func TestEvaluateDealbreakers(t *testing.T) {
	seeker := &db.Profile{ID: 1, Age: 30}

	tests := []struct {
		name      string
		rules     db.DealbreakerRules
		candidate db.Profile
		want      bool
	}{
		{
			name:      "no rules passes everyone",
			candidate: db.Profile{},
			want:      true,
		},
		{
			name:      "no smoking passes non smoker",
			rules:     db.DealbreakerRules{NoSmoking: true},
			candidate: db.Profile{Smoking: "no"},
			want:      true,
		},
		{
			name:      "no smoking rejects smoker",
			rules:     db.DealbreakerRules{NoSmoking: true},
			candidate: db.Profile{Smoking: "yes"},
			want:      false,
		},
		{
			name:      "no smoking rejects undisclosed",
			rules:     db.DealbreakerRules{NoSmoking: true},
			candidate: db.Profile{},
			want:      false,
		},
		{
			name:      "no drinking rejects undisclosed",
			rules:     db.DealbreakerRules{NoDrinking: true},
			candidate: db.Profile{},
			want:      false,
		},
		{
			name:      "kids stance must match exactly",
			rules:     db.DealbreakerRules{KidsStance: "wants"},
			candidate: db.Profile{KidsStance: "never"},
			want:      false,
		},
		{
			name:      "kids stance rejects undisclosed",
			rules:     db.DealbreakerRules{KidsStance: "wants"},
			candidate: db.Profile{},
			want:      false,
		},
		{
			name:      "relationship goal matches",
			rules:     db.DealbreakerRules{RelationshipGoal: "serious"},
			candidate: db.Profile{RelationshipGoal: "serious"},
			want:      true,
		},
		{
			name:      "height range passes inside",
			rules:     db.DealbreakerRules{MinHeightCM: 160, MaxHeightCM: 190},
			candidate: db.Profile{HeightCM: 175},
			want:      true,
		},
		{
			name:      "height range rejects below min",
			rules:     db.DealbreakerRules{MinHeightCM: 160},
			candidate: db.Profile{HeightCM: 155},
			want:      false,
		},
		{
			name:      "height rule rejects missing height",
			rules:     db.DealbreakerRules{MinHeightCM: 160},
			candidate: db.Profile{},
			want:      false,
		},
		{
			name:      "max age gap passes within",
			rules:     db.DealbreakerRules{MaxAgeGap: 5},
			candidate: db.Profile{Age: 34},
			want:      true,
		},
		{
			name:      "max age gap rejects beyond",
			rules:     db.DealbreakerRules{MaxAgeGap: 5},
			candidate: db.Profile{Age: 40},
			want:      false,
		},
		{
			name:      "max age gap rejects unknown age",
			rules:     db.DealbreakerRules{MaxAgeGap: 5},
			candidate: db.Profile{},
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matcher.EvaluateDealbreakers(tt.rules, seeker, &tt.candidate)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDealbreakerRulesConfigured(t *testing.T) {
	assert.False(t, db.DealbreakerRules{}.Configured())
	assert.True(t, db.DealbreakerRules{NoSmoking: true}.Configured())
	assert.True(t, db.DealbreakerRules{MaxAgeGap: 3}.Configured())
}
