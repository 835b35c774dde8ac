package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/md-rashed-zaman/salonbook/libs/auth"
	"github.com/md-rashed-zaman/salonbook/libs/runtime"
	"github.com/spf13/cobra"
)

// tokenCmd mints tenant tokens for local development against a JWT_SECRET deployment.
func tokenCmd() *cobra.Command {
	var businessID, role, secret string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development HS256 token for a tenant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if businessID == "" || secret == "" {
				return errors.New("--business-id and JWT_SECRET (or --secret) are required")
			}
			token, err := auth.SignHS256(auth.Claims{
				BusinessID: businessID,
				Role:       role,
				RegisteredClaims: jwt.RegisteredClaims{
					Subject:   "bookingctl",
					IssuedAt:  jwt.NewNumericDate(time.Now()),
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
				},
			}, secret)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&businessID, "business-id", runtime.Getenv("BUSINESS_ID", ""), "tenant id claim")
	cmd.Flags().StringVar(&role, "role", "staff", "role claim")
	cmd.Flags().StringVar(&secret, "secret", runtime.Getenv("JWT_SECRET", ""), "HS256 signing secret")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
