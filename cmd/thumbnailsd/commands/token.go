package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/thumbnails/auth"
	"github.com/jonwraymond/thumbnails/config"
)

func (c *CLI) newTokenCmd() *cobra.Command {
	var (
		roles []string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token PRINCIPAL",
		Short: "Mint a caller token signed with the configured key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Context(), configPath(cmd))
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}
			issuer, err := auth.NewTokenIssuer([]byte(cfg.Auth.SigningKey), cfg.Auth.Issuer, cfg.Auth.Audience, ttl)
			if err != nil {
				return err
			}
			token, err := issuer.Issue(args[0], auth.AuthMethodJWT, roles...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.out, token)
			return err
		},
	}
	cmd.Flags().StringSliceVarP(&roles, "role", "r", nil, "Role to grant, repeatable")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default auth.token_ttl)")
	return cmd
}
