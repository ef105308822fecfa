package main

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/petermazzocco/project-journal/internal/store/postgres"
	"github.com/petermazzocco/project-journal/models"
	"github.com/spf13/cobra"
)

func migrateCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Auto migrate the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			db, err := postgres.Open(cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Migrate(); err != nil {
				return err
			}
			slog.Info("migration complete")
			return nil
		},
	}
}

// adminCmd grants ADMIN to a user, creating it if needed. The first admin
// has to be made this way since only admins can edit the roster.
func adminCmd(load loader) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "add-admin <email>",
		Short: "Grant the ADMIN role to a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := strings.ToLower(strings.TrimSpace(args[0]))
			if !strings.Contains(email, "@") {
				return errors.New("a valid email is required")
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			db, err := postgres.Open(cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			u, err := db.UpsertUser(ctx, models.User{Email: email, Name: name, Role: models.RoleRef(models.RoleAdmin)})
			if err != nil {
				return err
			}
			if err := db.SetUserRole(ctx, u.ID, models.RoleRef(models.RoleAdmin)); err != nil {
				return err
			}
			slog.Info("admin granted", "user_id", u.ID, "email", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name for a new user")
	return cmd
}
