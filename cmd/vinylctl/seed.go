package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/IlyushaZ/vinyl-store/pkg/config"
	"github.com/IlyushaZ/vinyl-store/pkg/database"
	"github.com/IlyushaZ/vinyl-store/pkg/model"
	"github.com/IlyushaZ/vinyl-store/pkg/storage"
)

// words used for generating vinyls
var (
	genres     = []string{"Rock", "Jazz", "Soul", "Funk", "Blues", "Electronic", "Hip-Hop", "Folk", "Classical", "Reggae"}
	adjectives = []string{"Blue", "Electric", "Midnight", "Golden", "Silent", "Velvet", "Broken", "Endless", "Wild", "Paper"}
	nouns      = []string{"Train", "Sessions", "Garden", "Highway", "Dreams", "Machine", "River", "Summer", "Radio", "Moon"}
	artists    = []string{"The Groove Theory", "Miles Ahead", "Nina & The Echoes", "Static Lions", "Harbor Lights", "DJ Orbit"}
)

func seedCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "generate random vinyls",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "count", Value: 100, Usage: "number of vinyls to generate"},
			&cli.IntFlag{Name: "max-stock", Value: 5, Usage: "upper bound of generated stock"},
		},
		Action: func(c *cli.Context) error {
			if c.Int("count") < 0 || c.Int("max-stock") < 0 {
				return errors.New("count and max-stock can't be negative")
			}

			t0 := time.Now()
			defer func() { log.Printf("Vinyls generated. Elapsed: %s", time.Since(t0)) }()

			store, closeStore, err := storage.Open(c.Context, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			return generate(c.Context, store.Vinyls(), rand.New(rand.NewSource(time.Now().UnixNano())), c.Int("count"), c.Int("max-stock"))
		},
	}
}

func generate(ctx context.Context, vinyls database.VinylRepository, rnd *rand.Rand, count, maxStock int) error {
	now := time.Now().UTC()

	for i := 0; i < count; i++ {
		v := generateVinyl(rnd, maxStock, now.Add(time.Duration(i)*time.Millisecond))

		if err := vinyls.Create(ctx, v); err != nil {
			return fmt.Errorf("can't insert vinyl: %w", err)
		}

		if (i+1)%100 == 0 {
			log.Printf("Inserted %d vinyls\n", i+1)
		}
	}

	return nil
}

func generateVinyl(rnd *rand.Rand, maxStock int, createdAt time.Time) model.Vinyl {
	return model.Vinyl{
		Base:   model.Base{ID: uuid.New(), CreatedAt: createdAt},
		Title:  fmt.Sprintf("%s %s", adjectives[rnd.Intn(len(adjectives))], nouns[rnd.Intn(len(nouns))]),
		Artist: artists[rnd.Intn(len(artists))],
		Genre:  genres[rnd.Intn(len(genres))],
		Year:   1960 + rnd.Intn(65),
		Price:  int64(1500 + rnd.Intn(4000)),
		Stock:  rnd.Intn(maxStock + 1),
	}
}
