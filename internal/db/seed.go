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

// SeedTestData resets the database and populates it with demo users, profiles
// and swipes for local development.
//
// Behavior:
//  1. Clears every engine table.
//  2. Creates 20 users with profiles spread around central London; intents
//     split between dating / friends / both.
//  3. Generates swipes in both modes with ~70% likes; every 3rd decision also
//     inserts the reciprocal like so mutual matches exist out of the box.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	tables := []string{
		"messages", "conversation_members", "conversations",
		"blocks", "friend_requests", "matches", "swipes",
		"profiles", "users",
	}
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		for _, table := range tables {
			db.Exec("ALTER TABLE " + table + " AUTO_INCREMENT = 1")
		}
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence")
	}

	log.Println("Cleared existing data")

	intents := []LookingFor{LookingForDating, LookingForFriends, LookingForBoth}

	for i := 1; i <= 20; i++ {
		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		gender := "male"
		if i > 10 {
			gender = "female"
		}

		user := User{
			Username:     fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			Active:       true,
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		// jitter around central London
		lat := 51.5074 + (r.Float64()-0.5)*0.2
		lon := -0.1278 + (r.Float64()-0.5)*0.3

		profile := Profile{
			UserID:       user.ID,
			DisplayName:  fmt.Sprintf("User %d", i),
			Age:          21 + r.Intn(20),
			Gender:       gender,
			Lat:          &lat,
			Lon:          &lon,
			Interests:    "music,hiking,coffee",
			LookingFor:   intents[i%len(intents)],
			Verified:     i%4 == 0,
			LastActiveAt: time.Now().Add(-time.Duration(r.Intn(500)) * time.Hour),
		}
		if err := db.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}
	}
	log.Println("Seeded 20 users with profiles.")

	var users []User
	if err := db.Order("id").Find(&users).Error; err != nil {
		return err
	}

	upsert := clause.OnConflict{
		Columns: []clause.Column{
			{Name: "actor_id"}, {Name: "target_id"}, {Name: "mode"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"direction", "updated_at"}),
	}

	counter := 0
	for _, actor := range users {
		for j := 0; j < 12; j++ {
			target := users[r.Intn(len(users))]
			if actor.ID == target.ID {
				continue
			}

			mode := ModeDating
			if j%3 == 0 {
				mode = ModeFriends
			}

			direction := DirectionLeft
			if r.Intn(100) < 70 {
				direction = DirectionRight
			}

			// guarantee mutual likes every 3rd decision
			if counter%3 == 0 {
				direction = DirectionRight
				recip := Swipe{
					ActorID:   target.ID,
					TargetID:  actor.ID,
					Mode:      mode,
					Direction: DirectionRight,
				}
				db.Clauses(upsert).Create(&recip)
			}

			swipe := Swipe{
				ActorID:   actor.ID,
				TargetID:  target.ID,
				Mode:      mode,
				Direction: direction,
			}
			if err := db.Clauses(upsert).Create(&swipe).Error; err != nil {
				return fmt.Errorf("failed to seed swipe: %w", err)
			}

			counter++
		}
	}

	log.Printf("Seeded %d swipes.", counter)
	return nil
}
