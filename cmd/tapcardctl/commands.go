package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/tapcard-bfa-go/internal/config"
	"github.com/boddenberg/tapcard-bfa-go/internal/domain"
	"github.com/boddenberg/tapcard-bfa-go/internal/service"

	"github.com/spf13/cobra"
)

func resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [slug]",
		Short: "Resolve a card slug to its company and profile",
		Long: `Resolve a card slug the way a tap would, without recording an nfc_tap.
Unusable tags report their internal reason (not_found, deactivated, unlinked).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				res, err := a.tags.Resolve(ctx, args[0], "")
				if err != nil {
					var unusable *domain.ErrTagUnusable
					if errors.As(err, &unusable) {
						return printJSON(cmd.OutOrStdout(), map[string]string{
							"slug":   unusable.Slug,
							"reason": string(unusable.Reason),
						})
					}
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func dispatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch [lead-id]",
		Short: "Fan a lead out to its company's active webhooks",
		Long: `Run the webhook fan-out for a lead. The replay window still applies:
leads older than REPLAY_WINDOW are refused.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				summary, err := a.dispatcher.Dispatch(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), summary)
			})
		},
	}
}

func testWebhookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-webhook [company-id] [integration-id]",
		Short: "Send a test payload to one webhook integration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				result, err := a.dispatcher.TestDelivery(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
				if !result.OK {
					return fmt.Errorf("delivery failed: %s", result.Error)
				}
				return nil
			})
		},
	}
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token [company-id]",
		Short: "Sign a dashboard token for local development",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, _ := cmd.Flags().GetString("secret")
			subject, _ := cmd.Flags().GetString("subject")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if secret == "" {
				secret = config.Load().JWTSecret
			}
			if secret == "" {
				return errors.New("JWT secret is required (--secret or JWT_SECRET)")
			}

			token, err := service.NewAuthVerifier(secret).Sign(subject, args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().String("secret", "", "HS256 secret (defaults to JWT_SECRET)")
	cmd.Flags().String("subject", "operator", "Token subject")
	cmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
	return cmd
}
