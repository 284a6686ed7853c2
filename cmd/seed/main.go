package main

import (
	"flag"
	"log"

	"github.com/sahilchouksey/course-catalog/config"
	"github.com/sahilchouksey/course-catalog/database"
	"github.com/sahilchouksey/course-catalog/utils/logger"
)

func main() {
	sample := flag.Bool("sample", false, "also create a sample course owned by the admin")
	flag.Parse()

	if err := config.LoadENV(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}
	env, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to read config: %v", err)
	}

	appLog, err := logger.New(env.LOG_MODE)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLog.Sync()

	store, err := database.StartGORM(env, appLog)
	if err != nil {
		appLog.Fatal("failed to connect to database", "error", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		appLog.Fatal("failed to run migrations", "error", err)
	}

	seeder := database.NewSeeder(store.GetDB(), appLog)
	if err := seeder.SeedAll(database.SeedOptions{
		AdminEmail:    env.ADMIN_EMAIL,
		AdminPassword: env.ADMIN_PASSWORD,
		SampleCourse:  *sample,
	}); err != nil {
		appLog.Fatal("seeding failed", "error", err)
	}
}
