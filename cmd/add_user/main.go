package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hungnqdz/exam-management/app/config"
	"github.com/hungnqdz/exam-management/app/database"
	"github.com/hungnqdz/exam-management/app/models"
	"github.com/hungnqdz/exam-management/app/security"
)

func main() {
	username := flag.String("username", "", "login name (required)")
	password := flag.String("password", "", "initial password, at least 6 characters (required)")
	fullName := flag.String("name", "", "display name, defaults to the username")
	roleName := flag.String("role", "Teacher", "Teacher or Student")
	flag.Parse()

	role, ok := models.ParseRole(*roleName)
	if *username == "" || len(*password) < 6 || !ok || role == models.RoleAdmin {
		flag.Usage()
		os.Exit(2)
	}
	if *fullName == "" {
		*fullName = *username
	}

	cfg, err := config.LoadDatabase()
	if err != nil {
		fail(err)
	}
	db, err := config.OpenDB(cfg)
	if err != nil {
		fail(err)
	}
	defer db.Close()

	hasher, err := security.NewHasher(cfg.BcryptCost)
	if err != nil {
		fail(err)
	}
	hash, err := hasher.Hash(*password)
	if err != nil {
		fail(err)
	}

	acc := &models.Account{
		Username:     *username,
		PasswordHash: hash,
		FullName:     *fullName,
		Role:         role,
		Gender:       models.Other,
	}
	if err := database.NewStore(db).CreateAccount(context.Background(), acc, nil); err != nil {
		fail(err)
	}

	fmt.Printf("User created successfully: %s (%s)\n", acc.Username, acc.Role)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error creating user: %v\n", err)
	os.Exit(1)
}
