package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/railconnect/booking-ledger/internal/utils"
	"github.com/railconnect/booking-ledger/pkg/jwt"
)

func main() {
	var (
		secret   string
		devToken bool
		userID   string
		username string
		roles    string
		issuer   string
		expiry   time.Duration
	)
	flag.StringVar(&secret, "secret", "", "sign the dev token with this secret instead of a fresh one")
	flag.BoolVar(&devToken, "dev-token", false, "also mint a bearer token for local testing")
	flag.StringVar(&userID, "user-id", "", "user id for the dev token (random when empty)")
	flag.StringVar(&username, "username", "dev", "username for the dev token")
	flag.StringVar(&roles, "roles", "passenger", "comma separated roles for the dev token")
	flag.StringVar(&issuer, "issuer", "railconnect-auth", "issuer for the dev token; must match JWT_ISSUER")
	flag.DurationVar(&expiry, "expiry", 24*time.Hour, "dev token lifetime")
	flag.Parse()

	if secret == "" {
		generated, err := utils.GenerateJWTSecret()
		if err != nil {
			log.Fatalf("Failed to generate secret: %v", err)
		}
		secret = generated
		fmt.Println("Add this to your .env file:")
		fmt.Println()
		fmt.Printf("JWT_SECRET=%s\n", secret)
		fmt.Println()
	}

	if !devToken {
		return
	}

	id := uuid.New()
	if userID != "" {
		parsed, err := uuid.Parse(userID)
		if err != nil {
			log.Fatalf("Invalid -user-id: %v", err)
		}
		id = parsed
	}

	token, err := jwt.NewService(secret, issuer, expiry).GenerateAccessToken(id, username, strings.Split(roles, ","))
	if err != nil {
		log.Fatalf("Failed to mint token: %v", err)
	}

	fmt.Printf("user_id: %s\n", id)
	fmt.Printf("Authorization: Bearer %s\n", token)
}
