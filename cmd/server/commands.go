package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"medivault-api/internal/auth"
	"medivault-api/internal/config"
	"medivault-api/internal/model"
	"medivault-api/internal/store"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	withMigrator := func(fn func(ctx context.Context, m *store.Migrator) error) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		logger := newLogger(cfg)
		ctx := context.Background()

		pool, err := store.NewPool(ctx, cfg.DatabaseURL, 2, 0)
		if err != nil {
			return err
		}
		defer pool.Close()
		m, err := store.NewMigrator(pool, logger)
		if err != nil {
			return err
		}
		defer m.Close()
		return fn(ctx, m)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *store.Migrator) error {
				return m.Up(ctx)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *store.Migrator) error {
				return m.Status(ctx)
			})
		},
	})
	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account with any role, including admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			roleFlag, _ := cmd.Flags().GetString("role")
			role, err := model.ParseRole(roleFlag)
			if err != nil {
				return err
			}
			var r auth.Registration
			r.Name, _ = cmd.Flags().GetString("name")
			r.Email, _ = cmd.Flags().GetString("email")
			r.Password, _ = cmd.Flags().GetString("password")
			r.PhoneNumber, _ = cmd.Flags().GetString("phone")
			r.Specialization, _ = cmd.Flags().GetString("specialization")
			r.ConsultationFee, _ = cmd.Flags().GetFloat64("fee")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			logger := newLogger(cfg)
			ctx := context.Background()

			pool, err := store.NewPool(ctx, cfg.DatabaseURL, 2, 0)
			if err != nil {
				return err
			}
			defer pool.Close()

			st := store.New(pool)
			accounts := auth.NewAccounts(st, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, logger)
			// a running server may still hold the old doctor list
			doctors, closeCache, err := newDoctorCache(ctx, cfg, st, logger)
			if err != nil {
				return err
			}
			defer closeCache()
			if doctors != nil {
				accounts.OnUserCreated(doctors.UserCreated)
			}
			u, err := accounts.CreateUser(ctx, r, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", u.Role, u.Email, u.ID)
			return nil
		},
	}
	createCmd.Flags().String("role", string(model.RoleAdmin), "admin, doctor or patient")
	createCmd.Flags().String("name", "", "display name")
	createCmd.Flags().String("email", "", "login email")
	createCmd.Flags().String("password", "", "at least 8 characters")
	createCmd.Flags().String("phone", "", "phone number")
	createCmd.Flags().String("specialization", "", "doctor specialization")
	createCmd.Flags().Float64("fee", 0, "doctor consultation fee")
	_ = createCmd.MarkFlagRequired("name")
	_ = createCmd.MarkFlagRequired("email")
	_ = createCmd.MarkFlagRequired("password")

	cmd.AddCommand(createCmd)
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.IsProduction() {
				return fmt.Errorf("token minting is disabled in production")
			}
			if cfg.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is required")
			}
			uid, _ := cmd.Flags().GetString("user-id")
			roleFlag, _ := cmd.Flags().GetString("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			role, err := model.ParseRole(roleFlag)
			if err != nil {
				return err
			}
			tok, err := auth.MakeToken(uid, role, cfg.JWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().String("user-id", "", "subject user id")
	cmd.Flags().String("role", string(model.RolePatient), "admin, doctor or patient")
	cmd.Flags().Duration("ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}
