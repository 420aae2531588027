package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"touristsafety/models"
	"touristsafety/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type digitalIDFixture struct {
	service *DigitalIDService
	store   *memDigitalIDStore
	userID  string
	clock   time.Time
}

func newDigitalIDFixture(t *testing.T) *digitalIDFixture {
	t.Helper()
	user := &models.User{ID: primitive.NewObjectID(), FirstName: "Asha", LastName: "Rao", Nationality: "IN"}
	f := &digitalIDFixture{
		store:  newMemDigitalIDStore(),
		userID: user.ID.Hex(),
		clock:  time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC),
	}
	f.service = NewDigitalIDService(f.store, &memUserStore{users: map[primitive.ObjectID]*models.User{user.ID: user}}, 48*time.Hour)
	f.service.now = func() time.Time { return f.clock }
	return f
}

func TestIssueDigitalIDIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newDigitalIDFixture(t)
	ctx := context.Background()

	first, err := f.service.Issue(ctx, f.userID)
	if err != nil {
		t.Fatalf("Issue=%v", err)
	}
	if first.HolderName != "Asha Rao" || !strings.HasPrefix(first.DocumentNumber, "TID-") {
		t.Fatalf("Issue=%+v want holder and TID- number", first)
	}
	if want := ChainHash(f.userID, first.DocumentNumber, first.IssuedAt); first.ChainHash != want {
		t.Fatalf("ChainHash=%s want %s", first.ChainHash, want)
	}

	f.clock = f.clock.Add(time.Hour)
	second, err := f.service.Issue(ctx, f.userID)
	if err != nil {
		t.Fatalf("Issue(again)=%v", err)
	}
	if second.DocumentNumber != first.DocumentNumber || second.ChainHash != first.ChainHash {
		t.Fatalf("Issue(again)=%+v want unchanged %+v", second, first)
	}
}

func TestIssueRenewsExpiredID(t *testing.T) {
	t.Parallel()

	f := newDigitalIDFixture(t)
	ctx := context.Background()

	first, err := f.service.Issue(ctx, f.userID)
	if err != nil {
		t.Fatalf("Issue=%v", err)
	}

	f.clock = f.clock.Add(72 * time.Hour)
	renewed, err := f.service.Issue(ctx, f.userID)
	if err != nil {
		t.Fatalf("Issue(expired)=%v", err)
	}
	if renewed.DocumentNumber != first.DocumentNumber {
		t.Fatalf("DocumentNumber=%s want kept %s", renewed.DocumentNumber, first.DocumentNumber)
	}
	if !renewed.ExpiresAt.After(f.clock) || renewed.ChainHash == first.ChainHash {
		t.Fatalf("renewed=%+v want fresh expiry and hash", renewed)
	}
}

func TestDigitalIDQRAndVerify(t *testing.T) {
	t.Parallel()

	f := newDigitalIDFixture(t)
	ctx := context.Background()
	if _, err := f.service.Issue(ctx, f.userID); err != nil {
		t.Fatalf("Issue=%v", err)
	}

	qr, err := f.service.GetQR(ctx, f.userID)
	if err != nil {
		t.Fatalf("GetQR=%v", err)
	}
	if !strings.HasPrefix(qr.QRCode, "data:image/png;base64,") {
		t.Fatalf("QRCode prefix=%q", qr.QRCode[:30])
	}

	valid, err := f.service.Verify(ctx, models.VerifyDigitalIDRequest{Payload: qr.Payload})
	if err != nil || !valid.Valid || valid.HolderName != "Asha Rao" {
		t.Fatalf("Verify=%+v, %v want valid", valid, err)
	}

	forged := models.DigitalIDPayload{
		UserID:         f.userID,
		DocumentNumber: qr.DigitalID.DocumentNumber,
		ChainHash:      "0xdeadbeef",
		ExpiresAt:      qr.DigitalID.ExpiresAt.Unix(),
	}
	raw, _ := json.Marshal(forged)
	got, err := f.service.Verify(ctx, models.VerifyDigitalIDRequest{Payload: base64.StdEncoding.EncodeToString(raw)})
	if err != nil || got.Valid || got.Reason != "hash mismatch" {
		t.Fatalf("Verify(forged)=%+v, %v want hash mismatch", got, err)
	}

	f.clock = f.clock.Add(49 * time.Hour)
	got, err = f.service.Verify(ctx, models.VerifyDigitalIDRequest{Payload: qr.Payload})
	if err != nil || got.Valid || got.Reason != "expired" {
		t.Fatalf("Verify(expired)=%+v, %v want expired", got, err)
	}

	_, err = f.service.GetQR(ctx, f.userID)
	if se, _ := utils.GetServiceError(err); se.Code != utils.ErrCodeGone {
		t.Fatalf("GetQR(expired)=%v want gone", err)
	}
}

func TestDigitalIDRevoked(t *testing.T) {
	t.Parallel()

	f := newDigitalIDFixture(t)
	ctx := context.Background()
	if _, err := f.service.Issue(ctx, f.userID); err != nil {
		t.Fatalf("Issue=%v", err)
	}
	qr, err := f.service.GetQR(ctx, f.userID)
	if err != nil {
		t.Fatalf("GetQR=%v", err)
	}

	if err := f.service.Revoke(ctx, f.userID); err != nil {
		t.Fatalf("Revoke=%v", err)
	}
	got, err := f.service.Verify(ctx, models.VerifyDigitalIDRequest{Payload: qr.Payload})
	if err != nil || got.Valid || got.Reason != "revoked" {
		t.Fatalf("Verify(revoked)=%+v, %v want revoked", got, err)
	}
	if _, err := f.service.GetQR(ctx, f.userID); err == nil {
		t.Fatal("GetQR(revoked)=nil want gone")
	}
}

func TestVerifyMalformedPayload(t *testing.T) {
	t.Parallel()

	f := newDigitalIDFixture(t)
	payload := base64.StdEncoding.EncodeToString([]byte("not json"))

	got, err := f.service.Verify(context.Background(), models.VerifyDigitalIDRequest{Payload: payload})
	if err != nil || got.Valid || got.Reason != "malformed payload" {
		t.Fatalf("Verify=%+v, %v want malformed payload", got, err)
	}
}
