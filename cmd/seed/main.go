package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"tasktracker/internal/config"
	"tasktracker/internal/db"
	"tasktracker/internal/model"
	"tasktracker/internal/repository"
)

// SeedFile is the YAML document read by the seeder.
type SeedFile struct {
	Users []SeedUser `yaml:"users"`
}

// SeedUser describes one account to create or update.
type SeedUser struct {
	Email    string     `yaml:"email"`
	Password string     `yaml:"password"`
	Role     model.Role `yaml:"role"`
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var filePath string
	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.StringVarP(&filePath, "file", "f", "seed/users.yaml", "path to the YAML user list")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	users, err := parseSeedFile(f)
	if err != nil {
		return err
	}
	logger.Info("seed file loaded", "path", filePath, "users", len(users))

	gormDB, err := db.NewMySQL(cfg.MySQLDSN, cfg.MySQLMaxOpenConns)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	created, updated, err := seedUsers(context.Background(), repository.NewUserRepository(gormDB), users, cfg.BcryptCost)
	if err != nil {
		return err
	}

	logger.Info("seed completed", "created", created, "updated", updated)
	return nil
}

// parseSeedFile decodes and checks the user list. Roles default to USER.
func parseSeedFile(r io.Reader) ([]SeedUser, error) {
	var file SeedFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	for i := range file.Users {
		u := &file.Users[i]
		u.Email = strings.ToLower(strings.TrimSpace(u.Email))
		if u.Email == "" || u.Password == "" {
			return nil, fmt.Errorf("seed user %d: email and password are required", i)
		}
		if u.Role == "" {
			u.Role = model.RoleUser
		}
		if !u.Role.Valid() {
			return nil, fmt.Errorf("seed user %s: unknown role %q", u.Email, u.Role)
		}
	}
	return file.Users, nil
}

// seedUsers creates missing users and resets the password and role of
// existing ones.
func seedUsers(ctx context.Context, repo repository.UserRepository, users []SeedUser, cost int) (created int, updated int, err error) {
	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), cost)
		if err != nil {
			return created, updated, fmt.Errorf("hash password for %s: %w", u.Email, err)
		}

		existing, err := repo.FindByEmail(ctx, u.Email)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, updated, fmt.Errorf("error checking user %s: %w", u.Email, err)
		}

		if existing != nil {
			existing.PasswordHash = string(hash)
			existing.Role = u.Role
			if err := repo.Update(ctx, existing); err != nil {
				return created, updated, fmt.Errorf("error updating user %s: %w", u.Email, err)
			}
			updated++
			continue
		}

		user := &model.User{Email: u.Email, PasswordHash: string(hash), Role: u.Role}
		if err := repo.Create(ctx, user); err != nil {
			return created, updated, fmt.Errorf("error creating user %s: %w", u.Email, err)
		}
		created++
	}
	return created, updated, nil
}
