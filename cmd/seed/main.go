// Command main runs the database seeder for Chirp.
package main

import (
	"context"
	"flag"
	"log"

	"chirp/internal/config"
	"chirp/internal/database"
	"chirp/internal/notifications"
	"chirp/internal/seed"
	"chirp/internal/service"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numPosts := flag.Int("posts", 200, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	randomSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 picks one)")
	fast := flag.Bool("fast", false, "Hash passwords with the minimum bcrypt cost")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d posts, clean=%v\n", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.DBDriver == config.DriverMemory {
		log.Println("⚠️  DB_DRIVER is memory: seeded data is discarded when the seeder exits")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	svc := service.New(db, notifications.NewNotifier(nil), service.PolicyFromConfig(cfg))
	if *fast {
		svc.Identity.SetHashCost(bcrypt.MinCost)
	}

	result, err := seed.NewSeeder(db, svc, *randomSeed).Run(context.Background(), seed.Options{
		NumUsers:    *numUsers,
		NumPosts:    *numPosts,
		ShouldClean: *shouldClean,
		RandomSeed:  *randomSeed,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! Created %d users and %d posts.", len(result.Users), len(result.Posts))
	log.Printf("📧 All test users have the password: %s", seed.DefaultPassword)
}
