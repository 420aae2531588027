package services

import (
	"context"
	"errors"

	"touristsafety/models"

	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"
)

var ErrNoDeviceToken = errors.New("no device token registered")

// PushSender delivers a push notification to one device.
type PushSender interface {
	SendPush(ctx context.Context, deviceToken, title, body string, data map[string]string, priority string) error
}

type FCMPushService struct {
	client *messaging.Client
}

func NewFCMPushService(client *messaging.Client) *FCMPushService {
	return &FCMPushService{client: client}
}

func (ps *FCMPushService) SendPush(ctx context.Context, deviceToken, title, body string, data map[string]string, priority string) error {
	if deviceToken == "" {
		return ErrNoDeviceToken
	}

	androidPriority := "normal"
	sound := "default"
	if priority == models.PriorityHigh {
		androidPriority = "high"
		sound = "emergency"
	}

	message := &messaging.Message{
		Token: deviceToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: androidPriority,
			Notification: &messaging.AndroidNotification{
				Sound: sound,
				Icon:  "ic_notification",
				Color: "#D32F2F",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: title,
						Body:  body,
					},
					Sound: sound,
				},
			},
		},
	}

	id, err := ps.client.Send(ctx, message)
	if err != nil {
		return err
	}
	logrus.WithField("messageId", id).Debug("Push notification sent")
	return nil
}
