package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strconv"

	"fleetwatch-backend/internal/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMService handles Firebase Cloud Messaging
type FCMService struct {
	client *messaging.Client
}

// NewFCMService creates a new FCM service instance from a credentials file
func NewFCMService(credentialsFile string) (*FCMService, error) {
	ctx := context.Background()

	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

// NewFCMServiceFromBase64 creates a new FCM service instance from base64-encoded credentials
// This is useful for cloud deployments (Railway, Fly.io, Render) where you can't upload files easily
func NewFCMServiceFromBase64(credentialsBase64 string) (*FCMService, error) {
	ctx := context.Background()

	credentialsJSON, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
	}

	opt := option.WithCredentialsJSON(credentialsJSON)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

// SendAlertNotification pushes one alert to a single device token.
func (s *FCMService) SendAlertNotification(token string, alert models.Alert) error {
	ctx := context.Background()

	message := &messaging.Message{
		Token:        token,
		Notification: alertNotification(alert),
		Data:         alertData(alert),
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}

	response, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending FCM message: %w", err)
	}

	log.Printf("✅ FCM notification sent successfully: %s", response)
	return nil
}

// SendAlertMulticast pushes one alert to every registered dispatcher device.
func (s *FCMService) SendAlertMulticast(tokens []string, alert models.Alert) error {
	if len(tokens) == 0 {
		return nil
	}
	ctx := context.Background()

	message := &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: alertNotification(alert),
		Data:         alertData(alert),
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}

	response, err := s.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending multicast message: %w", err)
	}

	log.Printf("✅ Multicast sent: %d success, %d failures", response.SuccessCount, response.FailureCount)
	return nil
}

func alertNotification(alert models.Alert) *messaging.Notification {
	title := "Detention Warning"
	switch alert.Type {
	case models.AlertTypeCritical:
		title = "🚨 Driver in Detention"
	case models.AlertTypeReminder:
		title = "Detention Reminder"
	}
	return &messaging.Notification{
		Title: title,
		Body:  alert.Message,
	}
}

func alertData(alert models.Alert) map[string]string {
	data := map[string]string{
		"type":      "new_alert",
		"alert_id":  alert.ID,
		"driver_id": alert.DriverID,
		"stop_id":   alert.StopID,
		"severity":  string(alert.Type),
	}
	if alert.AppointmentTime != nil {
		data["appointment_time"] = strconv.FormatInt(*alert.AppointmentTime, 10)
	}
	return data
}
