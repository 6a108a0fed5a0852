package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-gomail/gomail"
	"github.com/subosito/gotenv"

	"github.com/acampov/mealpass/internal/config"
	"github.com/acampov/mealpass/internal/domain/entity"
	"github.com/acampov/mealpass/internal/infrastructure/qr"
)

// Isolated test for SMTP connectivity and voucher email rendering.
// This checks the relay credentials independently of the full system.

func main() {
	fmt.Println("=== SMTP Connectivity Test ===")
	fmt.Println("This tool verifies the configured relay can authenticate and send")
	fmt.Println()

	_ = gotenv.Load()

	configPath := "configs/config.yaml"
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.SMTP.Host == "" {
		log.Fatal("SMTP is not configured. Set smtp.host or SMTP_HOST.")
	}

	fmt.Printf("Host: %s:%d\n", cfg.SMTP.Host, cfg.SMTP.Port)
	fmt.Printf("User: %s\n", cfg.SMTP.Username)
	fmt.Printf("From: %s\n", cfg.SMTP.From)

	// Step 1: dial and authenticate
	fmt.Println("\n[Step 1] Dialing relay...")
	dialer := gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
	closer, err := dialer.Dial()
	if err != nil {
		log.Fatalf("✗ Dial failed: %v", err)
	}
	closer.Close()
	fmt.Println("✓ Relay reachable, credentials accepted")

	// Step 2: optionally send a real message
	if len(os.Args) < 2 {
		fmt.Println("\nNo recipient given, skipping send test.")
		fmt.Println("Usage: ./bin/test-smtp <recipient@example.com>")
		return
	}
	recipient := os.Args[1]

	fmt.Printf("\n[Step 2] Rendering a sample QR...\n")
	token := entity.NewToken()
	png, err := qr.NewRenderer(cfg.Event.QRSize).Render(token)
	if err != nil {
		log.Fatalf("✗ Failed to render QR: %v", err)
	}
	fmt.Printf("✓ Rendered %d bytes for token %s\n", len(png), token)

	fmt.Printf("\n[Step 3] Sending test email to %s...\n", recipient)
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(cfg.SMTP.From, cfg.SMTP.SenderName))
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", fmt.Sprintf("SMTP test - %s", cfg.Event.Name))
	m.SetBody("text/plain", fmt.Sprintf(
		"SMTP test message sent at %s.\nSample voucher token: %s\n",
		time.Now().Format("2006-01-02 15:04:05"), token))

	if err := dialer.DialAndSend(m); err != nil {
		log.Fatalf("✗ Send failed: %v", err)
	}
	fmt.Println("✓ Test email sent")

	fmt.Println("\n=== Test Complete ===")
}
