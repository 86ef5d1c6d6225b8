package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/IlyushaZ/vinyl-store/pkg/config"
	"github.com/IlyushaZ/vinyl-store/pkg/service"
	"github.com/IlyushaZ/vinyl-store/pkg/storage"
)

func expireCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "expire-overdue",
		Usage: "expire active reservations past their keep period and return units to stock",
		Action: func(c *cli.Context) error {
			store, closeStore, err := storage.Open(c.Context, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			e := &service.Expirer{
				Reservations: store.Reservations(),
				Service:      &service.ReservationLogging{&service.ReservationGeneric{Store: store, KeepPeriod: cfg.KeepPeriod}},
			}

			n, err := e.ExpireOverdue(c.Context, time.Now().UTC())
			fmt.Printf("Expired %d reservations\n", n)
			return err
		},
	}
}
