package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/config"
	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	mongorepo "github.com/ArowuTest/raffle-backend/internal/repositories/mongodb"
	"github.com/ArowuTest/raffle-backend/internal/repositories/sqlstore"
	"github.com/ArowuTest/raffle-backend/internal/services"
	"github.com/ArowuTest/raffle-backend/internal/utils"
	mongodb "github.com/ArowuTest/raffle-backend/pkg/mongodb"
	"github.com/spf13/pflag"
	"golang.org/x/exp/slog"
)

func main() {
	var (
		configPath    = pflag.String("config", "", "path to a config file")
		raffleID      = pflag.String("raffle", "", "raffle to import sold tickets into")
		csvPath       = pflag.String("file", "", "CSV of offline sold tickets")
		adminEmail    = pflag.String("seed-admin-email", "", "create a staff account with this email")
		adminPassword = pflag.String("seed-admin-password", "", "password of the seeded account")
		adminOrg      = pflag.String("seed-admin-org", "", "organization of the seeded account")
		adminRole     = pflag.String("seed-admin-role", models.RoleAdmin, "role of the seeded account (admin or staff)")
	)
	pflag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close(context.Background())

	if *adminEmail == "" && *csvPath == "" {
		slog.Error("Nothing to do: pass --file with --raffle, or --seed-admin-email")
		os.Exit(2)
	}

	if *adminEmail != "" {
		auth := services.NewAuthService(store.AdminUsers, nil, nil)
		user := &models.AdminUser{Email: *adminEmail, OrganizationID: *adminOrg, Role: *adminRole}
		if err := auth.CreateAdmin(ctx, user, *adminPassword); err != nil {
			if errors.Is(err, repositories.ErrAlreadyExists) {
				slog.Warn("Staff account already exists", "email", *adminEmail)
			} else {
				slog.Error("Failed to seed staff account", "error", err)
				os.Exit(1)
			}
		}
	}

	if *csvPath != "" {
		if *raffleID == "" {
			slog.Error("--raffle is required with --file")
			os.Exit(2)
		}
		file, err := os.Open(*csvPath)
		if err != nil {
			slog.Error("Failed to open CSV file", "error", err)
			os.Exit(1)
		}
		defer file.Close()

		importer := utils.NewSoldTicketImporter(store.Raffles, store.Tickets)
		result, err := importer.Import(ctx, *raffleID, file)
		if err != nil {
			slog.Error("Failed to import data", "error", err)
			os.Exit(1)
		}
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
	}
}

func openStore(ctx context.Context, cfg *config.Config) (*repositories.Store, error) {
	if cfg.Storage.Driver == "mongo" {
		client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI, cfg.MongoDB.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.MongoDB.Database)
		if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return mongorepo.NewStore(db, cfg.Notify.Gateway, client.Disconnect), nil
	}
	db, err := sqlstore.Open(ctx, cfg.SQLite.DSN)
	if err != nil {
		return nil, err
	}
	return db.Store(cfg.Notify.Gateway), nil
}
