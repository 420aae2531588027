package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"touristsafety/models"
	"touristsafety/utils"
)

var otpCodePattern = regexp.MustCompile(`\b\d{6}\b`)

func newAuthFixture() (*AuthService, *memAccounts, *recordingSMS) {
	accounts := newMemAccounts()
	sms := &recordingSMS{}
	svc := NewAuthService(accounts, utils.NewJWTService("test-secret", time.Minute, time.Hour), sms)
	return svc, accounts, sms
}

func registerRequest() models.RegisterRequest {
	return models.RegisterRequest{
		Email:       "Asha.Rao@Example.com",
		Phone:       "+91 98765 43210",
		Password:    "s3cret-pass",
		FirstName:   "Asha",
		LastName:    "Rao",
		Nationality: "IN",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	svc, _, _ := newAuthFixture()
	ctx := context.Background()

	registered, err := svc.Register(ctx, registerRequest())
	if err != nil {
		t.Fatalf("Register=%v", err)
	}
	if registered.User.Email != "asha.rao@example.com" || registered.User.Phone != "+919876543210" {
		t.Fatalf("Register normalized to %q %q", registered.User.Email, registered.User.Phone)
	}
	if registered.User.Password != "" || registered.AccessToken == "" {
		t.Fatalf("Register leaked password or missing token: %+v", registered)
	}

	loggedIn, err := svc.Login(ctx, models.LoginRequest{Email: "asha.rao@example.com", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("Login=%v", err)
	}
	if loggedIn.User.ID != registered.User.ID {
		t.Fatalf("Login user=%s want %s", loggedIn.User.ID.Hex(), registered.User.ID.Hex())
	}

	refreshed, err := svc.RefreshToken(ctx, loggedIn.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken=%v", err)
	}
	if refreshed.AccessToken == "" {
		t.Fatal("RefreshToken returned empty access token")
	}

	if _, err := svc.RefreshToken(ctx, loggedIn.AccessToken); err == nil {
		t.Fatal("RefreshToken(access token)=nil want error")
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	t.Parallel()

	svc, _, _ := newAuthFixture()
	ctx := context.Background()
	if _, err := svc.Register(ctx, registerRequest()); err != nil {
		t.Fatalf("Register=%v", err)
	}

	samePhone := registerRequest()
	samePhone.Email = "other@example.com"

	for name, req := range map[string]models.RegisterRequest{
		"same email": registerRequest(),
		"same phone": samePhone,
	} {
		_, err := svc.Register(ctx, req)
		se, ok := utils.GetServiceError(err)
		if !ok || se.Code != utils.ErrCodeConflict {
			t.Fatalf("%s: Register=%v want conflict", name, err)
		}
	}
}

func TestLoginFailures(t *testing.T) {
	t.Parallel()

	svc, accounts, _ := newAuthFixture()
	ctx := context.Background()
	registered, err := svc.Register(ctx, registerRequest())
	if err != nil {
		t.Fatalf("Register=%v", err)
	}

	_, err = svc.Login(ctx, models.LoginRequest{Email: "asha.rao@example.com", Password: "wrong-pass"})
	if se, _ := utils.GetServiceError(err); se.Code != utils.ErrCodeUnauthorized {
		t.Fatalf("Login(wrong password)=%v want unauthorized", err)
	}

	_, err = svc.Login(ctx, models.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	if se, _ := utils.GetServiceError(err); se.Code != utils.ErrCodeUnauthorized {
		t.Fatalf("Login(unknown)=%v want unauthorized", err)
	}

	if err := accounts.Update(ctx, registered.User.ID.Hex(), map[string]interface{}{"isActive": false}); err != nil {
		t.Fatalf("Update=%v", err)
	}
	_, err = svc.Login(ctx, models.LoginRequest{Email: "asha.rao@example.com", Password: "s3cret-pass"})
	if se, _ := utils.GetServiceError(err); se.Code != utils.ErrCodeForbidden {
		t.Fatalf("Login(inactive)=%v want forbidden", err)
	}
}

func TestPhoneOTP(t *testing.T) {
	t.Parallel()

	svc, accounts, sms := newAuthFixture()
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	registered, err := svc.Register(ctx, registerRequest())
	if err != nil {
		t.Fatalf("Register=%v", err)
	}
	userID := registered.User.ID.Hex()

	sent, err := svc.RequestPhoneOTP(ctx, userID)
	if err != nil {
		t.Fatalf("RequestPhoneOTP=%v", err)
	}
	if sent.SentTo != "+********3210" {
		t.Fatalf("SentTo=%q want masked phone", sent.SentTo)
	}

	code := otpCodePattern.FindString(sms.last("+919876543210"))
	if code == "" {
		t.Fatalf("no code in SMS %q", sms.last("+919876543210"))
	}

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	if err := svc.VerifyPhoneOTP(ctx, userID, models.VerifyOTPRequest{Code: wrong}); !utils.IsValidation(err) {
		t.Fatalf("VerifyPhoneOTP(wrong)=%v want validation error", err)
	}

	if err := svc.VerifyPhoneOTP(ctx, userID, models.VerifyOTPRequest{Code: code}); err != nil {
		t.Fatalf("VerifyPhoneOTP=%v", err)
	}
	user, _ := accounts.GetByID(ctx, userID)
	if !user.PhoneVerified {
		t.Fatal("PhoneVerified=false after verification")
	}

	_, err = svc.RequestPhoneOTP(ctx, userID)
	if se, _ := utils.GetServiceError(err); se.Code != utils.ErrCodeConflict {
		t.Fatalf("RequestPhoneOTP(verified)=%v want conflict", err)
	}
}

func TestPhoneOTPSMSFailure(t *testing.T) {
	t.Parallel()

	svc, _, sms := newAuthFixture()
	ctx := context.Background()
	registered, err := svc.Register(ctx, registerRequest())
	if err != nil {
		t.Fatalf("Register=%v", err)
	}

	sms.err = errors.New("twilio: 503")
	if _, err := svc.RequestPhoneOTP(ctx, registered.User.ID.Hex()); !utils.IsDependencyFailure(err) {
		t.Fatalf("RequestPhoneOTP=%v want dependency failure", err)
	}
}
