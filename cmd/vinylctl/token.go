package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/IlyushaZ/vinyl-store/pkg/config"
	"github.com/IlyushaZ/vinyl-store/pkg/identity"
	"github.com/IlyushaZ/vinyl-store/pkg/model"
)

func tokenCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "issue a bearer token signed with JWT_SECRET, for development",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user-id", Usage: "user id, random if empty"},
			&cli.StringFlag{Name: "username", Value: "dev"},
			&cli.StringFlag{Name: "role", Value: string(model.RoleUser), Usage: "user or admin"},
			&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
		},
		Action: func(c *cli.Context) error {
			id := uuid.New()
			if s := c.String("user-id"); s != "" {
				var err error
				if id, err = uuid.Parse(s); err != nil {
					return fmt.Errorf("can't parse user-id: %w", err)
				}
			}

			role := model.Role(c.String("role"))
			if role != model.RoleUser && role != model.RoleAdmin {
				return fmt.Errorf("role must be %s or %s, got %q", model.RoleUser, model.RoleAdmin, role)
			}

			p := model.Principal{ID: id, Username: c.String("username"), Role: role}

			token, err := (&identity.JWT{Secret: []byte(cfg.JWTSecret)}).Sign(p, c.Duration("ttl"))
			if err != nil {
				return err
			}

			fmt.Fprintln(c.App.Writer, token)
			return nil
		},
	}
}
