package main

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/guildops/ticketbot/internal/api/dto"
	"github.com/guildops/ticketbot/internal/auth"
	"github.com/guildops/ticketbot/internal/config"
)

func newTokenCommand() *cobra.Command {
	var (
		operator string
		scopes   []string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the ops HTTP endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			granted, err := parseScopes(scopes)
			if err != nil {
				return err
			}
			tokens := auth.NewTokenManager(cfg.Ops.JWTSecret, cfg.Ops.TokenTTLMinutes, cfg.App.Name)
			token, expires, err := tokens.GenerateToken(operator, granted)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(dto.TokenResponse{
				Token:     token,
				Operator:  operator,
				Scopes:    scopes,
				ExpiresAt: expires,
			})
		},
	}
	all := make([]string, 0, len(auth.AllScopes))
	for _, s := range auth.AllScopes {
		all = append(all, string(s))
	}
	cmd.Flags().StringVar(&operator, "operator", "", "name recorded in the token")
	cmd.Flags().StringSliceVar(&scopes, "scope", all, "scopes to grant")
	_ = cmd.MarkFlagRequired("operator")
	return cmd
}

func parseScopes(raw []string) ([]auth.Scope, error) {
	out := make([]auth.Scope, 0, len(raw))
	for _, s := range raw {
		scope := auth.Scope(s)
		if !slices.Contains(auth.AllScopes, scope) {
			return nil, fmt.Errorf("unknown scope %q", s)
		}
		out = append(out, scope)
	}
	return out, nil
}
