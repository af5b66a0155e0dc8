package db

import (
	"time"
)

// Swipe directions.
const (
	DirectionLike      = "like"
	DirectionPass      = "pass"
	DirectionSuperLike = "superlike"
)

// IsLike reports whether a direction counts as a like for mutual-match
// purposes. Super-likes count.
func IsLike(direction string) bool {
	return direction == DirectionLike || direction == DirectionSuperLike
}

// Match states. A match starts active and moves one-way into exactly
// one terminal state; archived matches are never reactivated.
const (
	MatchActive       = "active"
	MatchUnmatched    = "unmatched"
	MatchBlocked      = "blocked"
	MatchFriends      = "friends"
	MatchGracefulExit = "graceful_exit"
)

// TerminalState reports whether a match state is archived.
func TerminalState(state string) bool {
	switch state {
	case MatchUnmatched, MatchBlocked, MatchFriends, MatchGracefulExit:
		return true
	}
	return false
}

// DealbreakerRules are a user's hard filters. A nil/zero field means
// the axis is not configured and never filters. A configured axis
// whose candidate field is undisclosed fails the candidate on every
// axis, height included.
type DealbreakerRules struct {
	NoSmoking        bool    `json:"no_smoking,omitempty"`
	NoDrinking       bool    `json:"no_drinking,omitempty"`
	KidsStance       string  `json:"kids_stance,omitempty"`
	RelationshipGoal string  `json:"relationship_goal,omitempty"`
	MinHeightCM      int     `json:"min_height_cm,omitempty"`
	MaxHeightCM      int     `json:"max_height_cm,omitempty"`
	MaxAgeGap        int     `json:"max_age_gap,omitempty"`
}

// Configured reports whether any axis is set.
func (r DealbreakerRules) Configured() bool {
	return r.NoSmoking || r.NoDrinking || r.KidsStance != "" ||
		r.RelationshipGoal != "" || r.MinHeightCM > 0 || r.MaxHeightCM > 0 ||
		r.MaxAgeGap > 0
}

// Profile table. Read-only to the engine; profile editing lives in a
// collaborator service. Lifestyle fields use "" / 0 for undisclosed.
type Profile struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	DisplayName  string `gorm:"size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Active       bool   `gorm:"default:true;index"`

	Gender       string `gorm:"size:16;not null"`
	InterestedIn string `gorm:"size:16;not null"` // male | female | everyone
	Age          int    `gorm:"not null"`
	AgeMin       int    `gorm:"not null;default:18"`
	AgeMax       int    `gorm:"not null;default:99"`

	Lat           float64
	Lon           float64
	HasLocation   bool    `gorm:"not null;default:false"`
	MaxDistanceKM float64 `gorm:"not null;default:100"`

	Interests []string `gorm:"serializer:json"`

	Smoking          string `gorm:"size:16"` // yes | no | sometimes | ""
	Drinking         string `gorm:"size:16"`
	KidsStance       string `gorm:"size:24"` // wants | has | open | never | ""
	RelationshipGoal string `gorm:"size:24"` // serious | casual | friends | ""
	HeightCM         int
	Pace             string `gorm:"size:16"` // fast | steady | slow | ""

	Dealbreakers DealbreakerRules `gorm:"serializer:json"`

	Timezone     string `gorm:"size:48"`
	LastActiveAt time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Location returns the profile coordinates tagged with whether they
// were ever set.
func (p *Profile) Location() (lat, lon float64, set bool) {
	return p.Lat, p.Lon, p.HasLocation
}

// Swipe is an actor's decision on a target.
//
// Composite PK: (ActorID, TargetID) — a single row per ordered pair,
// so a reswipe overwrites rather than duplicates.
//
// Indexes:
//   - idx_target_direction(target_id, direction) for O(1) reciprocal
//     like checks.
//   - idx_actor_created(actor_id, created_at) for daily-scope lookups.
type Swipe struct {
	ActorID   uint64    `gorm:"primaryKey"`
	TargetID  uint64    `gorm:"primaryKey;index:idx_target_direction,priority:1"`
	Direction string    `gorm:"size:16;not null;index:idx_target_direction,priority:2"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_actor_created"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Match is the canonical row for a mutually-liked pair.
//
// The primary key is derived deterministically from the two user ids
// (UUIDv5 over "low:high"), so both swipe directions address the same
// row and insert-if-absent is race-safe without coordination.
type Match struct {
	ID         string `gorm:"primaryKey;size:36"`
	UserLowID  uint64 `gorm:"not null;index"`
	UserHighID uint64 `gorm:"not null;index"`
	State      string `gorm:"size:24;not null;default:active"`
	EndedBy    *uint64
	EndedAt    *time.Time
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// Involves reports whether the given user is a participant.
func (m *Match) Involves(userID uint64) bool {
	return m.UserLowID == userID || m.UserHighID == userID
}

// Other returns the participant that is not the given user.
func (m *Match) Other(userID uint64) uint64 {
	if m.UserLowID == userID {
		return m.UserHighID
	}
	return m.UserLowID
}

// Block is a directed block edge. Filtering treats it as
// bidirectional: either direction hides both users from each other.
type Block struct {
	UserID    uint64    `gorm:"primaryKey"`
	BlockedID uint64    `gorm:"primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// DailyPick is the persisted daily highlight for a user. Once a row
// exists for (UserID, DayKey) the picked candidate never changes that
// day, however the candidate pool moves afterwards.
type DailyPick struct {
	UserID      uint64    `gorm:"primaryKey"`
	DayKey      string    `gorm:"primaryKey;size:10"` // YYYY-MM-DD in the user's zone
	CandidateID uint64    `gorm:"not null"`
	ReasonTags  []string  `gorm:"serializer:json"`
	Viewed      bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// StandoutEntry is one row of a user's cached top-N ranking for a day.
// Recomputed once per day key, not per request.
type StandoutEntry struct {
	UserID        uint64    `gorm:"primaryKey"`
	DayKey        string    `gorm:"primaryKey;size:10"`
	Rank          int       `gorm:"primaryKey;column:rank_no"` // RANK is reserved in MySQL 8
	CandidateID   uint64    `gorm:"not null;index"`
	Score         float64   `gorm:"not null"`
	Highlights    []string  `gorm:"serializer:json"`
	HasInteracted bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}
