package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"touristsafety/models"
	"touristsafety/utils"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

const otpPeriodSeconds = 300

var otpOpts = totp.ValidateOpts{
	Period:    otpPeriodSeconds,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// AccountStore is the user persistence auth and profile management need.
type AccountStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	Update(ctx context.Context, id string, update bson.M) error
	UpdateLastSeen(ctx context.Context, id string) error
}

type AuthService struct {
	userRepo   AccountStore
	jwtService *utils.JWTService
	sms        SMSSender
	validator  *utils.ValidationService
	now        func() time.Time
}

func NewAuthService(userRepo AccountStore, jwtService *utils.JWTService, sms SMSSender) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		sms:        sms,
		validator:  utils.NewValidationService(),
		now:        time.Now,
	}
}

func (as *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	if err := as.validator.Validate(req); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := utils.NormalizePhoneNumber(req.Phone)

	if existing, _ := as.userRepo.GetByEmail(ctx, email); existing != nil {
		return nil, utils.NewConflictError("User with this email already exists")
	}
	if existing, _ := as.userRepo.GetByPhone(ctx, phone); existing != nil {
		return nil, utils.NewConflictError("User with this phone number already exists")
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		logrus.Error("Failed to hash password: ", err)
		return nil, utils.NewInternalError("Failed to create user", err)
	}

	user := models.User{
		Email:             email,
		Phone:             phone,
		Password:          hashedPassword,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Nationality:       req.Nationality,
		Role:              models.RoleUser,
		EmergencyContacts: []models.EmergencyContact{},
		Settings: models.UserSettings{
			ShareLocation:        true,
			NotificationsEnabled: true,
			Language:             "en",
		},
	}

	if err := as.userRepo.Create(ctx, &user); err != nil {
		if utils.IsServiceError(err) {
			return nil, err
		}
		logrus.Error("Failed to create user: ", err)
		return nil, utils.NewDatabaseError("create user", err)
	}

	logrus.WithField("userId", user.ID.Hex()).Info("User registered")
	return as.issueTokens(&user)
}

func (as *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if err := as.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := as.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, utils.NewInvalidCredentialsError()
	}

	if !user.IsActive {
		return nil, utils.NewForbiddenError("Account is deactivated")
	}

	if !utils.CheckPassword(user.Password, req.Password) {
		return nil, utils.NewInvalidCredentialsError()
	}

	if err := as.userRepo.UpdateLastSeen(ctx, user.ID.Hex()); err != nil {
		logrus.Warn("Failed to update last seen: ", err)
	}

	return as.issueTokens(user)
}

// RefreshToken exchanges a refresh token for a new pair. The role is read
// from the current user record so role changes apply on refresh.
func (as *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	claims, err := as.jwtService.ValidateToken(refreshToken)
	if err != nil || claims.TokenType != utils.TokenTypeRefresh {
		return nil, utils.NewUnauthorizedError("Invalid refresh token")
	}

	user, err := as.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, utils.NewUnauthorizedError("Invalid refresh token")
	}
	if !user.IsActive {
		return nil, utils.NewForbiddenError("Account is deactivated")
	}

	return as.issueTokens(user)
}

func (as *AuthService) issueTokens(user *models.User) (*models.AuthResponse, error) {
	tokenPair, err := as.jwtService.GenerateTokenPair(user.ID.Hex(), user.Email, user.Role)
	if err != nil {
		logrus.Error("Failed to generate tokens: ", err)
		return nil, utils.NewInternalError("Failed to generate authentication tokens", err)
	}

	user.Password = ""
	user.OTPSecret = ""

	return &models.AuthResponse{
		User:         *user,
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		TokenType:    tokenPair.TokenType,
		ExpiresIn:    tokenPair.ExpiresIn,
	}, nil
}

// =================== PHONE VERIFICATION ===================

// RequestPhoneOTP texts a time-based code to the user's phone. The TOTP
// secret is created on first use and kept on the user record.
func (as *AuthService) RequestPhoneOTP(ctx context.Context, userID string) (*models.OTPResponse, error) {
	user, err := as.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.PhoneVerified {
		return nil, utils.NewConflictError("Phone number already verified")
	}

	secret := user.OTPSecret
	if secret == "" {
		key, err := totp.Generate(totp.GenerateOpts{
			Issuer:      "TouristSafety",
			AccountName: user.Email,
			Period:      otpPeriodSeconds,
		})
		if err != nil {
			return nil, utils.NewInternalError("Failed to create verification secret", err)
		}
		secret = key.Secret()
		if err := as.userRepo.Update(ctx, userID, bson.M{"otpSecret": secret}); err != nil {
			return nil, err
		}
	}

	code, err := totp.GenerateCodeCustom(secret, as.now(), otpOpts)
	if err != nil {
		return nil, utils.NewInternalError("Failed to generate verification code", err)
	}

	message := fmt.Sprintf("Your Tourist Safety verification code is %s. It expires in %d minutes.", code, otpPeriodSeconds/60)
	if err := as.sms.SendSMS(ctx, user.Phone, message); err != nil {
		return nil, utils.NewDependencyFailure("sms", err)
	}

	return &models.OTPResponse{
		SentTo:    utils.MaskPhoneNumber(user.Phone),
		ExpiresIn: otpPeriodSeconds,
	}, nil
}

func (as *AuthService) VerifyPhoneOTP(ctx context.Context, userID string, req models.VerifyOTPRequest) error {
	if err := as.validator.Validate(req); err != nil {
		return err
	}

	user, err := as.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.OTPSecret == "" {
		return utils.NewValidationError("No verification code was requested")
	}

	valid, err := totp.ValidateCustom(req.Code, user.OTPSecret, as.now(), otpOpts)
	if err != nil || !valid {
		return utils.NewValidationError("Invalid or expired verification code")
	}

	return as.userRepo.Update(ctx, userID, bson.M{"phoneVerified": true})
}
