package main

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"roadlens/internal/auth"
	"roadlens/internal/config"
)

func newTokenCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage bearer tokens for API callers",
	}
	cmd.AddCommand(newTokenIssueCmd(cfg, jsonOutput))
	return cmd
}

func newTokenIssueCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "issue <user-id>",
		Short: "Sign a bearer token for one user with the configured secret",
		Args:  requireExactlyArgs(1, "user id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
				return errors.New("auth.jwt_secret is not configured (set it or ROADLENS_JWT_SECRET)")
			}
			issuer, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
			if err != nil {
				return err
			}
			token, err := issuer.Issue(args[0], ttl)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(map[string]any{
					"user_id":    args[0],
					"token":      token,
					"expires_at": formatTime(time.Now().Add(ttl)),
				})
			}
			return writePlain("%s\n", token)
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
