package services

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image/color"
	"time"

	"touristsafety/models"
	"touristsafety/utils"

	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/sha3"
)

const qrCodeSize = 320

type DigitalIDStore interface {
	Upsert(ctx context.Context, id *models.DigitalID) (*models.DigitalID, error)
	Renew(ctx context.Context, id *models.DigitalID) (*models.DigitalID, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.DigitalID, error)
	GetByDocumentNumber(ctx context.Context, documentNumber string) (*models.DigitalID, error)
	Revoke(ctx context.Context, userID primitive.ObjectID) error
}

// DigitalIDService issues tourist identity cards. The chain hash is a local
// keccak256 fingerprint standing in for an on-chain record.
type DigitalIDService struct {
	idRepo    DigitalIDStore
	users     UserStore
	validity  time.Duration
	validator *utils.ValidationService
	now       func() time.Time
}

func NewDigitalIDService(idRepo DigitalIDStore, users UserStore, validity time.Duration) *DigitalIDService {
	if validity <= 0 {
		validity = 30 * 24 * time.Hour
	}
	return &DigitalIDService{
		idRepo:    idRepo,
		users:     users,
		validity:  validity,
		validator: utils.NewValidationService(),
		now:       time.Now,
	}
}

// Issue returns the user's current card, creating it on first call. A card
// that is still valid is returned unchanged; an expired or revoked one is
// renewed under the same document number.
func (ds *DigitalIDService) Issue(ctx context.Context, userID string) (*models.DigitalID, error) {
	userObjectID, err := utils.ParseObjectID(userID, "user ID")
	if err != nil {
		return nil, err
	}

	now := ds.now()
	existing, err := ds.idRepo.GetByUserID(ctx, userObjectID)
	if err != nil && !utils.IsNotFound(err) {
		return nil, utils.NewDatabaseError("get digital ID", err)
	}
	if existing != nil && !existing.Revoked && !existing.Expired(now) {
		return existing, nil
	}

	user, err := ds.users.GetUser(ctx, userObjectID)
	if err != nil {
		return nil, err
	}

	card := &models.DigitalID{
		UserID:         userObjectID,
		DocumentNumber: utils.GenerateDocumentNumber(),
		HolderName:     user.FullName(),
		Nationality:    user.Nationality,
		IssuedAt:       now.UTC().Truncate(time.Second),
		ExpiresAt:      now.UTC().Add(ds.validity).Truncate(time.Second),
	}

	if existing != nil {
		card.DocumentNumber = existing.DocumentNumber
		card.ChainHash = ChainHash(userObjectID.Hex(), card.DocumentNumber, card.IssuedAt)
		saved, err := ds.idRepo.Renew(ctx, card)
		if err != nil {
			return nil, utils.NewDatabaseError("renew digital ID", err)
		}
		logrus.WithField("userId", userID).Info("Digital ID renewed")
		return saved, nil
	}

	card.ChainHash = ChainHash(userObjectID.Hex(), card.DocumentNumber, card.IssuedAt)
	saved, err := ds.idRepo.Upsert(ctx, card)
	if err != nil {
		return nil, utils.NewDatabaseError("issue digital ID", err)
	}

	logrus.WithFields(logrus.Fields{
		"userId":         userID,
		"documentNumber": saved.DocumentNumber,
	}).Info("Digital ID issued")
	return saved, nil
}

// GetQR renders the user's card as a PNG data URL. Expired and revoked
// cards are Gone.
func (ds *DigitalIDService) GetQR(ctx context.Context, userID string) (*models.DigitalIDQRResponse, error) {
	userObjectID, err := utils.ParseObjectID(userID, "user ID")
	if err != nil {
		return nil, err
	}

	card, err := ds.idRepo.GetByUserID(ctx, userObjectID)
	if err != nil {
		return nil, err
	}
	if card.Revoked {
		return nil, utils.NewGoneError("Digital ID has been revoked")
	}
	if card.Expired(ds.now()) {
		return nil, utils.NewGoneError("Digital ID has expired")
	}

	payload, err := EncodeDigitalIDPayload(card)
	if err != nil {
		return nil, utils.NewInternalError("Failed to encode digital ID", err)
	}

	qr, err := qrcode.New(payload, qrcode.Highest)
	if err != nil {
		return nil, utils.NewInternalError("Failed to build QR code", err)
	}
	qr.ForegroundColor = color.RGBA{0x0D, 0x1B, 0x2A, 0xFF}
	qr.BackgroundColor = color.White

	png, err := qr.PNG(qrCodeSize)
	if err != nil {
		return nil, utils.NewInternalError("Failed to render QR code", err)
	}

	return &models.DigitalIDQRResponse{
		DigitalID: *card,
		QRCode:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		Payload:   payload,
	}, nil
}

// Verify checks a scanned payload against the stored card.
func (ds *DigitalIDService) Verify(ctx context.Context, req models.VerifyDigitalIDRequest) (*models.VerifyDigitalIDResponse, error) {
	if err := ds.validator.Validate(req); err != nil {
		return nil, err
	}

	payload, err := DecodeDigitalIDPayload(req.Payload)
	if err != nil {
		return &models.VerifyDigitalIDResponse{Valid: false, Reason: "malformed payload"}, nil
	}

	card, err := ds.idRepo.GetByDocumentNumber(ctx, payload.DocumentNumber)
	if err != nil {
		if utils.IsNotFound(err) {
			return &models.VerifyDigitalIDResponse{Valid: false, Reason: "unknown document"}, nil
		}
		return nil, utils.NewDatabaseError("verify digital ID", err)
	}

	reject := func(reason string) (*models.VerifyDigitalIDResponse, error) {
		return &models.VerifyDigitalIDResponse{Valid: false, Reason: reason}, nil
	}

	switch {
	case card.UserID.Hex() != payload.UserID:
		return reject("holder mismatch")
	case payload.ChainHash != card.ChainHash:
		return reject("hash mismatch")
	case ChainHash(card.UserID.Hex(), card.DocumentNumber, card.IssuedAt) != card.ChainHash:
		return reject("record tampered")
	case card.Revoked:
		return reject("revoked")
	case card.Expired(ds.now()):
		return reject("expired")
	}

	return &models.VerifyDigitalIDResponse{
		Valid:      true,
		HolderName: card.HolderName,
		ExpiresAt:  card.ExpiresAt.Unix(),
	}, nil
}

func (ds *DigitalIDService) Revoke(ctx context.Context, userID string) error {
	userObjectID, err := utils.ParseObjectID(userID, "user ID")
	if err != nil {
		return err
	}
	return ds.idRepo.Revoke(ctx, userObjectID)
}

// ChainHash is hex(keccak256(userId|documentNumber|issuedAtUnix)).
func ChainHash(userID, documentNumber string, issuedAt time.Time) string {
	h := sha3.NewLegacyKeccak256()
	fmt.Fprintf(h, "%s|%s|%d", userID, documentNumber, issuedAt.Unix())
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

func EncodeDigitalIDPayload(card *models.DigitalID) (string, error) {
	raw, err := json.Marshal(models.DigitalIDPayload{
		UserID:         card.UserID.Hex(),
		DocumentNumber: card.DocumentNumber,
		ChainHash:      card.ChainHash,
		ExpiresAt:      card.ExpiresAt.Unix(),
	})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func DecodeDigitalIDPayload(encoded string) (*models.DigitalIDPayload, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	var payload models.DigitalIDPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	if payload.DocumentNumber == "" {
		return nil, fmt.Errorf("payload has no document number")
	}
	return &payload, nil
}
