package services

import (
	"context"
	"fmt"

	"touristsafety/utils"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSSender delivers a single text message.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) error
}

type TwilioSMSService struct {
	client      *twilio.RestClient
	phoneNumber string
}

func NewTwilioSMSService(accountSID, authToken, phoneNumber string) *TwilioSMSService {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioSMSService{
		client:      client,
		phoneNumber: phoneNumber,
	}
}

func (ss *TwilioSMSService) SendSMS(ctx context.Context, phone, message string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(utils.NormalizePhoneNumber(phone))
	params.SetFrom(ss.phoneNumber)
	params.SetBody(message)

	type result struct {
		sid string
		err error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := ss.client.Api.CreateMessage(params)
		if err != nil {
			done <- result{err: err}
			return
		}
		sid := ""
		if resp.Sid != nil {
			sid = *resp.Sid
		}
		done <- result{sid: sid}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return fmt.Errorf("failed to send SMS: %w", r.err)
		}
		logrus.WithField("sid", r.sid).Debug("SMS sent")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send SMS: %w", ctx.Err())
	}
}

// MockSMSService logs messages instead of sending them.
type MockSMSService struct{}

func NewMockSMSService() *MockSMSService {
	return &MockSMSService{}
}

func (m *MockSMSService) SendSMS(_ context.Context, phone, message string) error {
	logrus.WithFields(logrus.Fields{
		"to":     utils.MaskPhoneNumber(phone),
		"length": len(message),
	}).Info("Mock SMS sent")
	return nil
}
