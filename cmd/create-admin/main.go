// Command create-admin provisions an administrator account. Intended for
// bootstrapping the first operator and for break-glass access; day-to-day
// admin management happens through the API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/vantagepos/licensing-backend/internal/adminauth"
	"github.com/vantagepos/licensing-backend/pkg/config"
	"github.com/vantagepos/licensing-backend/pkg/db"
	"github.com/vantagepos/licensing-backend/pkg/logger"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "create-admin"})

	_ = godotenv.Load()

	email := flag.String("email", "", "admin email address")
	name := flag.String("name", "", "display name")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: create-admin -email ops@example.com [-name \"Ops\"]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "create-admin",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	svc, err := adminauth.NewService(adminauth.ServiceParams{
		Repo:     adminauth.NewRepository(dbClient.DB()),
		JWT:      cfg.JWT,
		Password: cfg.Password,
	})
	requireResource(ctx, logg, "admin auth service", err)

	password, err := readPassword()
	requireResource(ctx, logg, "password input", err)

	admin, err := svc.CreateAdmin(ctx, adminauth.CreateAdminInput{
		Email:       *email,
		Password:    password,
		DisplayName: *name,
	})
	requireResource(ctx, logg, "create admin", err)

	fmt.Printf("created admin %s (%s)\n", admin.Email, admin.ID)
}

// readPassword prompts twice without echoing. A piped stdin is read as a
// single line so the command works from provisioning scripts.
func readPassword() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		var password string
		if _, err := fmt.Fscanln(os.Stdin, &password); err != nil {
			return "", fmt.Errorf("read password from stdin: %w", err)
		}
		return password, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	fmt.Fprint(os.Stderr, "Confirm password: ")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password confirmation: %w", err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
