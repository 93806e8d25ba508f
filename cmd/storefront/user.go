package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/storefront/internal/config"
	"github.com/dmitrymomot/storefront/pkg/db"
	"github.com/dmitrymomot/storefront/pkg/identity"
	"github.com/dmitrymomot/storefront/pkg/password"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(userCreateCmd())
	return cmd
}

func userCreateCmd() *cobra.Command {
	var email, name, pass string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDatabase()
			if err != nil {
				return err
			}
			if cfg.Backend != config.BackendPostgres {
				return fmt.Errorf("%w: accounts are only persisted with STORE_BACKEND=postgres", config.ErrInvalid)
			}

			hasher, err := password.New(password.DefaultParams)
			if err != nil {
				return err
			}
			hash, err := hasher.Hash(pass)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := db.Connect(ctx, cfg.DB)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			user, err := identity.NewPostgresStore(pool).Create(ctx, identity.NormalizeEmail(email), name, hash)
			if errors.Is(err, identity.ErrEmailTaken) {
				return fmt.Errorf("%s is already registered", email)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", user.ID, user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&pass, "password", "", "password, at least 8 characters")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
