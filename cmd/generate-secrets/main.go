package main

import (
	"fmt"
	"log"

	"github.com/onehorn/event-booking-backend/internal/utils"
)

func main() {
	secrets, err := utils.GenerateSecrets()
	if err != nil {
		log.Fatalf("Failed to generate secrets: %v", err)
	}

	fmt.Println("# Add these to your .env file. Never commit them.")
	fmt.Printf("JWT_SECRET=%s\n", secrets.JWTAccess)
	fmt.Printf("JWT_REFRESH_SECRET=%s\n", secrets.JWTRefresh)
	fmt.Println()
	fmt.Println("# Paste the same value into the Razorpay dashboard webhook settings.")
	fmt.Printf("RAZORPAY_WEBHOOK_SECRET=%s\n", secrets.WebhookSecret)
}
