package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexus-app/marketplace/internal/core/domain"
	"github.com/nexus-app/marketplace/internal/pkg/clock"
	"github.com/nexus-app/marketplace/internal/pkg/config"
	"github.com/nexus-app/marketplace/internal/pkg/token"
)

// tokenCommand mints a session token for an existing username, signed with
// the configured secret. Used for smoke tests against a running deployment.
func tokenCommand(cfg **config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Generates a session token for a username",
		RunE: func(cmd *cobra.Command, _ []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			role, _ := cmd.Flags().GetString("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			kind, err := domain.ParseAccountKind(role)
			if err != nil {
				return err
			}

			issuer, err := token.NewIssuer(token.Config{Secret: (*cfg).JWT.Secret, TTL: (*cfg).JWT.TTL}, clock.System{})
			if err != nil {
				return err
			}
			tok, err := issuer.Issue(subject, string(kind), ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), tok.Value)
			return nil
		},
	}

	cmd.Flags().String("subject", "", "Username the token is issued to")
	cmd.Flags().String("role", string(domain.KindBusiness), "Account kind: BUSINESS or SERVICE_PROVIDER")
	cmd.Flags().Duration("ttl", 0, "Token lifetime, 0 uses JWT_TTL")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}
