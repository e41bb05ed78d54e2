package config

import (
	"context"
	"encoding/base64"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// InitMessaging initializes the Firebase Admin SDK and returns its FCM
// client, or nil when no credentials are configured
func InitMessaging(ctx context.Context, cfg *AppConfig) *messaging.Client {
	var opt option.ClientOption
	switch {
	case cfg.FirebaseCredentialsBase64 != "":
		log.Printf("Using Firebase credentials from base64 environment variable")
		decoded, err := base64.StdEncoding.DecodeString(cfg.FirebaseCredentialsBase64)
		if err != nil {
			log.Printf("Error decoding base64 credentials: %v", err)
			return nil
		}
		opt = option.WithCredentialsJSON(decoded)
	case cfg.FirebaseCredentialsFile != "":
		log.Printf("Using Firebase credentials file: %s", cfg.FirebaseCredentialsFile)
		opt = option.WithCredentialsFile(cfg.FirebaseCredentialsFile)
	default:
		return nil
	}

	var fbConfig *firebase.Config
	if cfg.FirebaseProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}
	app, err := firebase.NewApp(ctx, fbConfig, opt)
	if err != nil {
		log.Printf("error initializing firebase app: %v", err)
		return nil
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		log.Printf("error getting firebase messaging client: %v", err)
		return nil
	}
	return client
}
