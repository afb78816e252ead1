package main

import (
	"log"

	"github.com/hungnqdz/exam-management/app/config"
	"github.com/hungnqdz/exam-management/app/database"
)

func main() {
	log.Println("Starting database migration...")

	cfg, err := config.LoadDatabase()
	if err != nil {
		log.Fatal(err)
	}
	db, err := config.OpenDB(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Migration failed: ", err)
	}
	log.Println("Migration completed successfully!")
}
