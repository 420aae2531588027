// config/notification_config.go
package config

import (
	"context"

	"touristsafety/services"

	firebase "firebase.google.com/go/v4"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// NotificationSenders are the outbound channels the notification service
// fans out to. Push is nil when Firebase is not configured.
type NotificationSenders struct {
	Email services.EmailSender
	SMS   services.SMSSender
	Push  services.PushSender
}

// InitNotificationSenders picks real providers when credentials are present
// and logging mocks otherwise.
func (c *Config) InitNotificationSenders(ctx context.Context) NotificationSenders {
	senders := NotificationSenders{
		Email: c.initEmail(),
		SMS:   c.initSMS(),
	}

	if push := c.initPush(ctx); push != nil {
		senders.Push = push
	}
	return senders
}

func (c *Config) initEmail() services.EmailSender {
	if c.SMTPUsername == "" || c.SMTPPassword == "" {
		logrus.Warn("SMTP credentials not configured, using mock email service")
		return services.NewMockEmailService()
	}
	return services.NewSMTPEmailService(
		c.SMTPHost,
		c.SMTPPort,
		c.SMTPUsername,
		c.SMTPPassword,
		c.SMTPFrom,
		c.SMTPFromName,
	)
}

func (c *Config) initSMS() services.SMSSender {
	if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioPhoneNumber == "" {
		entry := logrus.WithField("environment", c.Environment)
		if c.IsProduction() {
			entry.Error("Twilio not configured, emergency SMS will only be logged")
		} else {
			entry.Warn("Twilio not configured, using mock SMS service")
		}
		return services.NewMockSMSService()
	}
	return services.NewTwilioSMSService(c.TwilioAccountSID, c.TwilioAuthToken, c.TwilioPhoneNumber)
}

func (c *Config) initPush(ctx context.Context) *services.FCMPushService {
	if c.FirebaseCredentials == "" {
		logrus.Warn("Firebase credentials not configured, push notifications disabled")
		return nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(c.FirebaseCredentials))
	if err != nil {
		logrus.Errorf("Failed to initialize Firebase: %v", err)
		return nil
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		logrus.Errorf("Failed to get FCM client: %v", err)
		return nil
	}
	return services.NewFCMPushService(client)
}
