package main

import (
	"context"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"caltrack/internal/config"
	"caltrack/internal/db"
	"caltrack/internal/model"
	"caltrack/internal/repository"
)

const (
	demoEmail    = "demo@caltrack.local"
	demoPassword = "demo-password"
)

type seedEntry struct {
	daysAgo  int
	name     string
	calories int
	barcode  string
}

var seedEntries = []seedEntry{
	{0, "Oatmeal with banana", 310, ""},
	{0, "Chicken salad", 420, ""},
	{0, "Dark chocolate square", 55, "7622210449283"},
	{1, "Greek yogurt", 150, ""},
	{1, "Pasta with tomato sauce", 610, ""},
}

func main() {
	log.Println("Starting seed script...")

	cfg := config.Load()

	gormDB, err := db.NewPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(&model.User{}, &model.Entry{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	ctx := context.Background()
	users := repository.NewUserRepository(gormDB)
	entries := repository.NewEntryRepository(gormDB)

	user, created, err := ensureDemoUser(ctx, users)
	if err != nil {
		log.Fatalf("Failed to seed demo user: %v", err)
	}
	if created {
		log.Printf("Created demo user %s", demoEmail)
	} else {
		log.Printf("Demo user %s already present", demoEmail)
	}

	// Entries are only seeded for a fresh demo user, so re-running the
	// script never duplicates rows.
	if !created {
		log.Println("Skipping entry seeding, user already had data")
		return
	}

	seeded := 0
	for _, item := range seedEntries {
		day := time.Now().AddDate(0, 0, -item.daysAgo).Format("2006-01-02")
		entry := &model.Entry{
			UserID:     user.ID,
			OccurredOn: model.Day(day),
			Name:       item.name,
			Calories:   item.calories,
		}
		if item.barcode != "" {
			barcode := item.barcode
			entry.Barcode = &barcode
		}
		if err := entries.Create(ctx, entry); err != nil {
			log.Fatalf("Failed to seed entry %q: %v", item.name, err)
		}
		seeded++
	}

	log.Printf("Seed completed successfully!")
	log.Printf("  - Entries created: %d", seeded)
	log.Printf("  - Login: %s / %s", demoEmail, demoPassword)
}

// ensureDemoUser creates the demo user unless it already exists.
func ensureDemoUser(ctx context.Context, users repository.UserRepository) (*model.User, bool, error) {
	existing, err := users.FindByEmail(ctx, demoEmail)
	if err == nil {
		return existing, false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, err
	}

	user := &model.User{
		Email:        demoEmail,
		PasswordHash: string(hash),
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}
