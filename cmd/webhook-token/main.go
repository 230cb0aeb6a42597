// Command webhook-token mints the bearer token the ticketing backend sends
// with outbound message webhooks.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/spec-kit/sms-ticket-bridge/internal/auth"
)

func main() {
	_ = godotenv.Load()

	secret := pflag.String("secret", os.Getenv("WEBHOOK_JWT_SECRET"), "HS256 signing secret (defaults to WEBHOOK_JWT_SECRET)")
	ttl := pflag.Duration("ttl", 365*24*time.Hour, "token lifetime, 0 for no expiry")
	subject := pflag.String("subject", auth.WebhookSubject, "token subject")
	pflag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "webhook-token: a secret is required (--secret or WEBHOOK_JWT_SECRET)")
		os.Exit(2)
	}

	token, expiresAt, err := auth.NewTokenManager(*secret, *ttl).GenerateToken(*subject)
	if err != nil {
		fmt.Fprintf(os.Stderr, "webhook-token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
	if expiresAt != nil {
		fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.UTC().Format(time.RFC3339))
	}
}
