package main

import (
	"context"
	"fmt"
	"os"

	"github.com/praxlog/logbook-backend/internal/auth"
	"github.com/praxlog/logbook-backend/internal/config"
	"github.com/praxlog/logbook-backend/internal/database"
	"github.com/praxlog/logbook-backend/internal/store"
)

func main() {
	if len(os.Args) != 4 {
		fmt.Fprintf(os.Stderr, "Usage: %s <email> <password> <role>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Example: %s admin@praxlog.io mypassword admin\n", os.Args[0])
		os.Exit(1)
	}

	email := os.Args[1]
	password := os.Args[2]
	role := os.Args[3]

	hash, err := auth.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating hash: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Load()
	db, err := database.New(&cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	st := store.New(db.Pool())

	user, err := st.CreateUser(ctx, email, hash)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create user: %v\n", err)
		os.Exit(1)
	}

	if err := st.AssignRole(ctx, user.ID, role); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to assign role: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("User created successfully: %s (%s)\n", user.Email, role)
}
