package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"gopkg.in/yaml.v3"

	"github.com/praxlog/logbook-backend/internal/auth"
	"github.com/praxlog/logbook-backend/internal/config"
	"github.com/praxlog/logbook-backend/internal/database"
	"github.com/praxlog/logbook-backend/internal/store"
	"github.com/praxlog/logbook-backend/db/migrations"
)

type SeedData struct {
	Users     []User     `yaml:"users"`
	UserRoles []UserRole `yaml:"user_roles"`
	Templates []Template `yaml:"templates"`
	Grants    []Grant    `yaml:"grants"`
}

type User struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Admin    bool   `yaml:"admin"`
}

type UserRole struct {
	UserEmail string `yaml:"user_email"`
	RoleName  string `yaml:"role_name"`
}

type Template struct {
	Name       string `yaml:"name"`
	OwnerEmail string `yaml:"owner_email"`
}

type Grant struct {
	UserEmail    string `yaml:"user_email"`
	TemplateName string `yaml:"template_name"`
	Role         string `yaml:"role"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()
		return errors.New("command required")
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "seed":
		return seedCommand(args)
	case "nuke":
		return nukeCommand(args)
	case "help", "--help", "-h":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func seedCommand(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	file := fs.String("file", "", "YAML file to seed from")
	dir := fs.String("dir", "", "Directory of YAML files to seed from")
	dryRun := fs.Bool("dry-run", false, "Validate files without making database changes")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	files, err := resolveFiles(*file, *dir)
	if err != nil {
		return err
	}

	seedData, err := loadSeedData(files)
	if err != nil {
		return fmt.Errorf("failed to load seed data: %w", err)
	}

	if *dryRun {
		fmt.Println("dry run: validating data structure")
		return validateSeedData(seedData)
	}

	cfg := config.Load()
	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	fmt.Printf("seeding database from %d file(s)\n", len(files))
	return applySeedData(context.Background(), store.New(db.Pool()), seedData)
}

func nukeCommand(args []string) error {
	fs := flag.NewFlagSet("nuke", flag.ExitOnError)
	force := fs.Bool("force", false, "Skip confirmation prompt")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	if !*force && !confirmNuke() {
		fmt.Println("operation cancelled")
		return nil
	}

	return nukeDatabase()
}

func resolveFiles(file, dir string) ([]string, error) {
	if file == "" && dir == "" {
		return nil, errors.New("must specify either --file or --dir")
	}

	if file != "" && dir != "" {
		return nil, errors.New("cannot specify both --file and --dir")
	}

	if file != "" {
		return []string{file}, nil
	}

	return findYAMLFiles(dir)
}

func findYAMLFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && isYAMLFile(path) {
			files = append(files, path)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan directory %s: %w", dir, err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no YAML files found in directory: %s", dir)
	}

	return files, nil
}

func isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func loadSeedData(files []string) (*SeedData, error) {
	combined := &SeedData{}

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", file, err)
		}

		var fileData SeedData
		if err := yaml.Unmarshal(data, &fileData); err != nil {
			return nil, fmt.Errorf("failed to parse YAML in %s: %w", file, err)
		}

		combined.Users = append(combined.Users, fileData.Users...)
		combined.UserRoles = append(combined.UserRoles, fileData.UserRoles...)
		combined.Templates = append(combined.Templates, fileData.Templates...)
		combined.Grants = append(combined.Grants, fileData.Grants...)
	}

	return combined, nil
}

func validateSeedData(data *SeedData) error {
	fmt.Printf("  Users: %d\n", len(data.Users))
	fmt.Printf("  User Roles: %d\n", len(data.UserRoles))
	fmt.Printf("  Templates: %d\n", len(data.Templates))
	fmt.Printf("  Grants: %d\n", len(data.Grants))
	fmt.Println("data structure is valid")
	return nil
}

func applySeedData(ctx context.Context, st *store.Store, data *SeedData) error {
	userIDs := make(map[string]uuid.UUID)
	for _, user := range data.Users {
		hash, err := auth.HashPassword(user.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", user.Email, err)
		}

		created, err := st.CreateUser(ctx, user.Email, hash)
		if err != nil {
			return fmt.Errorf("failed to create user %s: %w", user.Email, err)
		}
		if user.Admin {
			if err := st.SetUserAdmin(ctx, created.ID, true); err != nil {
				return fmt.Errorf("failed to flag %s as admin: %w", user.Email, err)
			}
		}
		userIDs[user.Email] = created.ID
		fmt.Printf("created user: %s\n", user.Email)
	}

	for _, userRole := range data.UserRoles {
		userID, exists := userIDs[userRole.UserEmail]
		if !exists {
			return fmt.Errorf("user %s not found for role assignment", userRole.UserEmail)
		}

		if err := st.AssignRole(ctx, userID, userRole.RoleName); err != nil {
			return fmt.Errorf("failed to assign role to %s: %w", userRole.UserEmail, err)
		}
		fmt.Printf("assigned role %s to user: %s\n", userRole.RoleName, userRole.UserEmail)
	}

	templateIDs := make(map[string]uuid.UUID)
	for _, tpl := range data.Templates {
		ownerID, exists := userIDs[tpl.OwnerEmail]
		if !exists {
			return fmt.Errorf("owner %s not found for template %s", tpl.OwnerEmail, tpl.Name)
		}

		created, err := st.CreateTemplate(ctx, tpl.Name, nil, ownerID)
		if err != nil {
			return fmt.Errorf("failed to create template %s: %w", tpl.Name, err)
		}
		templateIDs[tpl.Name] = created.ID
		fmt.Printf("created template: %s\n", tpl.Name)
	}

	for _, grant := range data.Grants {
		userID, exists := userIDs[grant.UserEmail]
		if !exists {
			return fmt.Errorf("user %s not found for grant", grant.UserEmail)
		}
		templateID, exists := templateIDs[grant.TemplateName]
		if !exists {
			return fmt.Errorf("template %s not found for grant", grant.TemplateName)
		}

		if _, err := st.UpsertGrant(ctx, userID, templateID, grant.Role, nil); err != nil {
			return fmt.Errorf("failed to grant %s on %s to %s: %w",
				grant.Role, grant.TemplateName, grant.UserEmail, err)
		}
		fmt.Printf("granted %s on %s to user: %s\n", grant.Role, grant.TemplateName, grant.UserEmail)
	}

	fmt.Println("seeding completed")
	return nil
}

func nukeDatabase() error {
	cfg := config.Load()

	sqlDB, err := goose.OpenDBWithDriver("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			fmt.Printf("warning: failed to close database: %v\n", err)
		}
	}()

	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)

	fmt.Println("resetting database with goose...")

	fmt.Println("rolling back all migrations...")
	if err := goose.Reset(sqlDB, "."); err != nil {
		return fmt.Errorf("failed to reset migrations: %w", err)
	}

	fmt.Println("applying all migrations...")
	if err := goose.Up(sqlDB, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	fmt.Println("database reset complete - ready for seeding")
	return nil
}

func confirmNuke() bool {
	fmt.Print("warning: this will delete all data from the database. are you sure? (yes/no): ")

	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false
	}

	return strings.ToLower(strings.TrimSpace(response)) == "yes"
}

func printUsage() {
	fmt.Println("Seeder Tool - Database seeding utility for Praxlog")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  seeder <command> [flags]")
	fmt.Println()
	fmt.Println("COMMANDS:")
	fmt.Println("  seed        Seed database from YAML files")
	fmt.Println("  nuke        Delete all data from database")
	fmt.Println("  help        Show this help message")
	fmt.Println()
	fmt.Println("SEED FLAGS:")
	fmt.Println("  --file      Path to a single YAML file")
	fmt.Println("  --dir       Path to directory containing YAML files")
	fmt.Println("  --dry-run   Validate files without making database changes")
	fmt.Println()
	fmt.Println("NUKE FLAGS:")
	fmt.Println("  --force     Skip confirmation prompt")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  seeder seed --file dev-data.yaml")
	fmt.Println("  seeder seed --dir ./seed-data/")
	fmt.Println("  seeder seed --dir ./seed-data/ --dry-run")
	fmt.Println("  seeder nuke")
	fmt.Println("  seeder nuke --force")
}
