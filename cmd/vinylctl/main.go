package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/IlyushaZ/vinyl-store/pkg/config"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("### Can't load config: %v", err)
	}

	if err := newApp(cfg).Run(os.Args); err != nil {
		log.Fatalf("### %v", err)
	}
}

func newApp(cfg *config.Config) *cli.App {
	return &cli.App{
		Name:  "vinylctl",
		Usage: "operator tooling for vinyl store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "storage",
				Usage:       "storage backend: postgres, firestore or memory",
				Value:       cfg.Storage,
				Destination: &cfg.Storage,
			},
		},
		Before: func(*cli.Context) error {
			return cfg.Validate()
		},
		Commands: []*cli.Command{
			migrateCommand(cfg),
			seedCommand(cfg),
			expireCommand(cfg),
			tokenCommand(cfg),
		},
	}
}
