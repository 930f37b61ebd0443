package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the default configuration file.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := shared.ExpandHome(cmd.String("config"))
	if !cmd.IsSet("config") && r.configPath != "" {
		configPath = r.configPath
	}

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", configPath)
	r.writePlain("✓ Config written to %s\n", configPath)
	return nil
}

// SetupDatabase initializes the run history database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if cmd.Bool("rollback") {
		if err := shared.RollbackMigration(db); err != nil {
			return err
		}
		r.writePlain("✓ Rolled back the latest migration\n")
		return nil
	}

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
	return nil
}

// SetupCredentials validates and saves the Spotify client credentials.
//
// Empty or whitespace-only values are rejected and nothing is written.
func (r *Runner) SetupCredentials(ctx context.Context, cmd *cli.Command) error {
	credentials, err := shared.NewCredentials(cmd.String("client-id"), cmd.String("client-secret"))
	if err != nil {
		return err
	}

	path := r.config.Paths.Credentials
	if err := shared.SaveCredentials(path, credentials); err != nil {
		return err
	}
	r.credentials = credentials

	r.logger.Info("credentials saved", "path", path)
	r.writePlain("✓ Credentials saved to %s\n", path)
	r.writePlain("Next: spotsync auth login\n")
	return nil
}
