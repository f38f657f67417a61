package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"parkpay/backend/libs/logging"
	"parkpay/backend/services/payment-service/internal/auth"
)

// gate-token mints bearer tokens for gate controllers and the website backend.
// The signing secret is read from PAYMENT_JWT_SECRET.
func main() {
	clientID := flag.String("client", "", "client id to put in the token subject, e.g. gate-north")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	logger, err := logging.NewLogger("gate-token")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	token, err := auth.NewTokenService(os.Getenv("PAYMENT_JWT_SECRET"), *ttl).Issue(*clientID)
	if err != nil {
		logger.Fatal("failed to issue token", zap.String("client", *clientID), zap.Error(err))
	}
	fmt.Println(token)
}
