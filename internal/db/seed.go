package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var seedInterests = []string{
	"hiking", "cooking", "jazz", "climbing", "film", "yoga",
	"travel", "board games", "running", "photography", "wine", "cycling",
}

var seedGoals = []string{"serious", "casual", "friends"}
var seedPaces = []string{"fast", "steady", "slow"}

// SeedTestData resets the database and populates it with demo profiles
// and swipes.
//
// Behavior:
//  1. Clears existing rows in every engine table.
//  2. Creates 20 profiles (10 male, 10 female) scattered around NYC,
//     with hashed passwords, interests, and lifestyle fields. Two
//     profiles are left without a location to exercise the unset-
//     location path.
//  3. Generates ~200 swipes with ~70% likes; every 3rd decision also
//     inserts the reciprocal like so mutual pairs exist.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(gdb *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, table := range []string{"standout_entries", "daily_picks", "blocks", "matches", "swipes", "profiles"} {
		if err := gdb.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch gdb.Dialector.Name() {
	case "mysql":
		gdb.Exec("ALTER TABLE profiles AUTO_INCREMENT = 1")
	case "sqlite":
		gdb.Exec("DELETE FROM sqlite_sequence WHERE name = 'profiles'")
	}

	log.Println("Cleared existing data")

	for i := 1; i <= 20; i++ {
		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		gender, interestedIn := "male", "female"
		if i > 10 {
			gender, interestedIn = "female", "male"
		}

		interests := make([]string, 0, 4)
		for _, idx := range r.Perm(len(seedInterests))[:4] {
			interests = append(interests, seedInterests[idx])
		}

		p := Profile{
			DisplayName:  fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			Active:       true,
			Gender:       gender,
			InterestedIn: interestedIn,
			Age:          22 + r.Intn(20),
			AgeMin:       20,
			AgeMax:       45,
			// Scatter within ~30 km of Manhattan.
			Lat:              40.7128 + (r.Float64()-0.5)*0.5,
			Lon:              -74.0060 + (r.Float64()-0.5)*0.5,
			HasLocation:      i != 7 && i != 17, // two profiles never set one
			MaxDistanceKM:    50,
			Interests:        interests,
			Smoking:          pick(r, "yes", "no", "no", ""),
			Drinking:         pick(r, "yes", "no", "sometimes", ""),
			KidsStance:       pick(r, "wants", "open", "never", ""),
			RelationshipGoal: seedGoals[r.Intn(len(seedGoals))],
			HeightCM:         155 + r.Intn(40),
			Pace:             seedPaces[r.Intn(len(seedPaces))],
			Timezone:         "America/New_York",
			LastActiveAt:     time.Now().Add(-time.Duration(r.Intn(72)) * time.Hour),
		}

		// A few users carry hard filters.
		if i%5 == 0 {
			p.Dealbreakers = DealbreakerRules{NoSmoking: true, MaxAgeGap: 10}
		}

		if err := gdb.Create(&p).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}
	}
	log.Println("Seeded 20 profiles.")

	var profiles []Profile
	if err := gdb.Find(&profiles).Error; err != nil {
		return err
	}
	byID := make(map[uint64]Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	counter := 0
	for _, actor := range profiles {
		for j := 0; j < 12; j++ {
			target, ok := byID[profiles[r.Intn(len(profiles))].ID]
			if !ok || target.ID == actor.ID || target.Gender == actor.Gender {
				continue
			}

			direction := DirectionPass
			if r.Intn(100) < 70 {
				direction = DirectionLike
			}

			// Guarantee mutual likes every 3rd pair.
			if counter%3 == 0 {
				direction = DirectionLike
				recip := Swipe{ActorID: target.ID, TargetID: actor.ID, Direction: DirectionLike}
				gdb.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
					DoUpdates: clause.AssignmentColumns([]string{"direction", "updated_at"}),
				}).Create(&recip)
			}

			swipe := Swipe{ActorID: actor.ID, TargetID: target.ID, Direction: direction}
			if err := gdb.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"direction", "updated_at"}),
			}).Create(&swipe).Error; err != nil {
				return fmt.Errorf("failed to seed swipe: %w", err)
			}

			counter++
		}
	}
	log.Printf("Seeded %d swipes.", counter)

	return nil
}

func pick(r *rand.Rand, options ...string) string {
	return options[r.Intn(len(options))]
}
