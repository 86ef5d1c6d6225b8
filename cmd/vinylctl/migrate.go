package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/IlyushaZ/vinyl-store/pkg/config"
	"github.com/IlyushaZ/vinyl-store/pkg/database"
)

func migrateCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply or revert PostgreSQL schema migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: func(*cli.Context) error {
					db, closeDB, err := database.New(cfg.PostgresAddr, cfg.PostgresDB, cfg.PostgresUser, cfg.PostgresPassword)
					if err != nil {
						return fmt.Errorf("can't init database: %w", err)
					}
					defer closeDB()

					version, err := database.MigrateUp(db)
					if err != nil {
						return err
					}

					fmt.Printf("Schema is at version %d\n", version)
					return nil
				},
			},
			{
				Name:  "down",
				Usage: "revert migrations",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "steps", Value: 1, Usage: "number of migrations to revert"},
				},
				Action: func(c *cli.Context) error {
					db, closeDB, err := database.New(cfg.PostgresAddr, cfg.PostgresDB, cfg.PostgresUser, cfg.PostgresPassword)
					if err != nil {
						return fmt.Errorf("can't init database: %w", err)
					}
					defer closeDB()

					return database.MigrateDown(db, c.Int("steps"))
				},
			},
		},
	}
}
