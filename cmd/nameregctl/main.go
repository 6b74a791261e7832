// Command nameregctl holds operator tooling for a namereg deployment.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	jwttoken "namereg/internal/jwt_token"
	"namereg/internal/platform/config"
	"namereg/internal/platform/logger"
	"namereg/internal/platform/postgres"
	"namereg/internal/registry/seed"
	id "namereg/pkg/domain"
)

func main() {
	if err := rootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "nameregctl",
		Short:        "Operator tooling for the namereg registry",
		SilenceUsage: true,
	}
	root.AddCommand(tokenCommand(), migrateCommand(), validateSeedCommand())
	return root
}

func tokenCommand() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <address>",
		Short: "Mint a bearer token that authenticates as address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := id.ParseAddress(args[0])
			if err != nil {
				return err
			}
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			tokens := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
			token, err := tokens.GenerateAccessToken(caller, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations to DATABASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return fmt.Errorf("DATABASE_URL is not set")
			}
			db, err := postgres.Open(cmd.Context(), postgres.Config{URL: cfg.Database.URL})
			if err != nil {
				return err
			}
			defer db.Close()
			return postgres.Migrate(db, logger.New(cfg.Log.Level, "text"))
		},
	}
}

func validateSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-seed <file>",
		Short: "Check a seed file without applying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := seed.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d public, %d private entries\n", len(file.Public), len(file.Private))
			return nil
		},
	}
}
