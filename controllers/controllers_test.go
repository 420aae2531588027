package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"touristsafety/models"
	"touristsafety/services"
	"touristsafety/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memZones struct {
	mu    sync.Mutex
	zones map[string]models.Geofence
}

func newMemZones() *memZones {
	return &memZones{zones: make(map[string]models.Geofence)}
}

func (m *memZones) Create(_ context.Context, zone *models.Geofence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	zone.ID = primitive.NewObjectID()
	zone.CreatedAt = time.Now()
	zone.UpdatedAt = zone.CreatedAt
	m.zones[zone.ID.Hex()] = *zone
	return nil
}

func (m *memZones) GetByID(_ context.Context, id string) (*models.Geofence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	zone, ok := m.zones[id]
	if !ok {
		return nil, utils.NewZoneNotFoundError()
	}
	return &zone, nil
}

func (m *memZones) Replace(_ context.Context, zone *models.Geofence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.zones[zone.ID.Hex()]; !ok {
		return utils.NewZoneNotFoundError()
	}
	m.zones[zone.ID.Hex()] = *zone
	return nil
}

func (m *memZones) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.zones[id]; !ok {
		return utils.NewZoneNotFoundError()
	}
	delete(m.zones, id)
	return nil
}

func (m *memZones) ListActive(_ context.Context) ([]models.Geofence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Geofence
	for _, z := range m.zones {
		if z.IsActive {
			out = append(out, z)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (m *memZones) List(ctx context.Context, risk models.RiskLevel, _, _ int) ([]models.Geofence, int64, error) {
	all, _ := m.ListActive(ctx)
	var out []models.Geofence
	for _, z := range all {
		if risk == "" || z.RiskLevel == risk {
			out = append(out, z)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memZones) LastModified(context.Context) (time.Time, error) {
	return time.Time{}, nil
}

type memConsents struct {
	mu      sync.Mutex
	records []models.ConsentRecord
	fail    bool
}

func (m *memConsents) Append(_ context.Context, record *models.ConsentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("write concern timeout")
	}
	record.ID = primitive.NewObjectID()
	m.records = append(m.records, *record)
	return nil
}

func (m *memConsents) History(_ context.Context, userID primitive.ObjectID) ([]models.ConsentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ConsentRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].UserID == userID {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

func (m *memConsents) Latest(ctx context.Context, userID primitive.ObjectID) (map[models.ConsentType]models.ConsentRecord, error) {
	history, _ := m.History(ctx, userID)
	latest := make(map[models.ConsentType]models.ConsentRecord)
	for _, r := range history {
		if _, seen := latest[r.Type]; !seen {
			latest[r.Type] = r
		}
	}
	return latest, nil
}

// asUser injects the identity the auth middleware would set.
func asUser(userID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("userRole", role)
		c.Next()
	}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, models.APIResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Encode(%v)=%v", body, err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp models.APIResponse
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s %s: Unmarshal(%s)=%v", method, path, w.Body.String(), err)
		}
	}
	return w, resp
}

func TestZoneController(t *testing.T) {
	t.Parallel()

	store := newMemZones()
	index := services.NewZoneIndex()
	zc := NewZoneController(services.NewZoneService(store, index))

	adminID := primitive.NewObjectID().Hex()
	router := gin.New()
	api := router.Group("/zones", asUser(adminID, models.RoleAdmin))
	api.GET("", zc.ListZones)
	api.POST("", zc.CreateZone)
	api.GET("/:id", zc.GetZone)
	api.PUT("/:id", zc.UpdateZone)
	api.DELETE("/:id", zc.DeleteZone)

	circle := models.CreateZoneRequest{
		Name:         "Old Town Market",
		Kind:         models.ZoneKindCircle,
		ZoneType:     models.ZoneTypeRisky,
		RiskLevel:    models.RiskHigh,
		Center:       &models.Coordinate{Latitude: 27.1751, Longitude: 78.0421},
		RadiusMeters: 400,
	}
	w, resp := doJSON(t, router, http.MethodPost, "/zones", circle)
	if w.Code != http.StatusCreated || !resp.Success {
		t.Fatalf("POST /zones=%d want 201 (%s)", w.Code, w.Body.String())
	}
	if got := index.Len(); got != 1 {
		t.Fatalf("index.Len()=%d after create want 1", got)
	}

	var created models.Geofence
	raw, _ := json.Marshal(resp.Data)
	if err := json.Unmarshal(raw, &created); err != nil || created.ID.IsZero() {
		t.Fatalf("created zone=%s err=%v", raw, err)
	}
	if created.CreatedBy.Hex() != adminID {
		t.Fatalf("CreatedBy=%s want %s", created.CreatedBy.Hex(), adminID)
	}

	degenerate := models.CreateZoneRequest{
		Name:      "Line",
		Kind:      models.ZoneKindPolygon,
		ZoneType:  models.ZoneTypeRestricted,
		RiskLevel: models.RiskMedium,
		Vertices: []models.Coordinate{
			{Latitude: 1, Longitude: 1},
			{Latitude: 2, Longitude: 2},
		},
	}

	cases := []struct {
		name     string
		method   string
		path     string
		body     interface{}
		wantCode int
		wantErr  string
	}{
		{"degenerate polygon", http.MethodPost, "/zones", degenerate, http.StatusBadRequest, utils.ErrCodeInvalidGeometry},
		{"missing fields", http.MethodPost, "/zones", map[string]string{"name": "x"}, http.StatusBadRequest, utils.ErrCodeValidation},
		{"bad risk filter", http.MethodGet, "/zones?risk=extreme", nil, http.StatusBadRequest, utils.ErrCodeValidation},
		{"unknown zone", http.MethodGet, "/zones/" + primitive.NewObjectID().Hex(), nil, http.StatusNotFound, utils.ErrCodeNotFound},
		{"list high", http.MethodGet, "/zones?risk=high", nil, http.StatusOK, ""},
	}
	for _, tc := range cases {
		w, resp := doJSON(t, router, tc.method, tc.path, tc.body)
		if w.Code != tc.wantCode {
			t.Fatalf("%s: %s %s=%d want %d (%s)", tc.name, tc.method, tc.path, w.Code, tc.wantCode, w.Body.String())
		}
		if tc.wantErr != "" && (resp.Error == nil || resp.Error.Code != tc.wantErr) {
			t.Fatalf("%s: error=%+v want %s", tc.name, resp.Error, tc.wantErr)
		}
	}

	inactive := false
	w, _ = doJSON(t, router, http.MethodPut, "/zones/"+created.ID.Hex(), models.UpdateZoneRequest{IsActive: &inactive})
	if w.Code != http.StatusOK {
		t.Fatalf("PUT /zones/:id=%d want 200 (%s)", w.Code, w.Body.String())
	}
	if got := index.Len(); got != 0 {
		t.Fatalf("index.Len()=%d after deactivate want 0", got)
	}

	w, _ = doJSON(t, router, http.MethodDelete, "/zones/"+created.ID.Hex(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("DELETE /zones/:id=%d want 200", w.Code)
	}
	w, _ = doJSON(t, router, http.MethodDelete, "/zones/"+created.ID.Hex(), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("second DELETE=%d want 404", w.Code)
	}
}

func TestConsentController(t *testing.T) {
	t.Parallel()

	store := &memConsents{}
	cc := NewConsentController(services.NewConsentService(store))
	userID := primitive.NewObjectID().Hex()

	router := gin.New()
	api := router.Group("/consent", asUser(userID, models.RoleUser))
	api.POST("", cc.RecordConsent)
	api.GET("", cc.GetStatus)
	api.GET("/history", cc.GetHistory)
	api.DELETE("/:type", cc.RevokeConsent)

	status := func() map[string]bool {
		t.Helper()
		w, resp := doJSON(t, router, http.MethodGet, "/consent", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("GET /consent=%d want 200", w.Code)
		}
		out := map[string]bool{}
		raw, _ := json.Marshal(resp.Data)
		_ = json.Unmarshal(raw, &out)
		return out
	}

	w, _ := doJSON(t, router, http.MethodPost, "/consent", models.RecordConsentRequest{
		Type:    models.ConsentTracking,
		Granted: true,
		Purpose: "live location sharing with responders",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /consent=%d want 201 (%s)", w.Code, w.Body.String())
	}
	if got := status(); !got["tracking"] || got["notifications"] {
		t.Fatalf("status=%v want only tracking granted", got)
	}

	past := time.Now().Add(-time.Hour)
	w, resp := doJSON(t, router, http.MethodPost, "/consent", models.RecordConsentRequest{
		Type:      models.ConsentNotifications,
		Granted:   true,
		ExpiresAt: &past,
	})
	if w.Code != http.StatusBadRequest || resp.Error == nil || resp.Error.Code != utils.ErrCodeValidation {
		t.Fatalf("POST expired consent=%d %+v want 400 validation", w.Code, resp.Error)
	}

	w, _ = doJSON(t, router, http.MethodDelete, "/consent/tracking", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("DELETE /consent/tracking=%d want 200", w.Code)
	}
	if got := status(); got["tracking"] {
		t.Fatalf("status=%v want tracking revoked", got)
	}

	w, resp = doJSON(t, router, http.MethodGet, "/consent/history", nil)
	if records, ok := resp.Data.([]interface{}); w.Code != http.StatusOK || !ok || len(records) != 2 {
		t.Fatalf("GET /consent/history=%d data=%v want 2 records", w.Code, resp.Data)
	}

	w, _ = doJSON(t, router, http.MethodDelete, "/consent/marketing", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("DELETE unknown type=%d want 400", w.Code)
	}

	store.mu.Lock()
	store.fail = true
	store.mu.Unlock()
	w, resp = doJSON(t, router, http.MethodDelete, "/consent/tracking", nil)
	if w.Code != http.StatusInternalServerError || resp.Error == nil || resp.Error.Code != utils.ErrCodeDatabase {
		t.Fatalf("DELETE with failing store=%d %+v want 500 database error", w.Code, resp.Error)
	}
}

func TestHealthController(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		checks map[string]HealthCheck
		want   int
	}{
		{
			name: "all healthy",
			checks: map[string]HealthCheck{
				"mongodb": func(context.Context) error { return nil },
				"nats":    nil,
			},
			want: http.StatusOK,
		},
		{
			name: "redis down",
			checks: map[string]HealthCheck{
				"mongodb": func(context.Context) error { return nil },
				"redis":   func(context.Context) error { return errors.New("dial tcp: connection refused") },
			},
			want: http.StatusServiceUnavailable,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			router := gin.New()
			router.GET("/health", NewHealthController("1.0.0", tc.checks).HealthCheck)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			if w.Code != tc.want {
				t.Fatalf("GET /health=%d want %d (%s)", w.Code, tc.want, w.Body.String())
			}
			var body models.HealthResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("Unmarshal=%v", err)
			}
			if body.Version != "1.0.0" || len(body.Services) != len(tc.checks) {
				t.Fatalf("body=%+v", body)
			}
		})
	}
}

func TestQueryValidation(t *testing.T) {
	t.Parallel()

	router := gin.New()
	ac := NewAlertController(nil, nil, nil)
	dc := NewDashboardController(nil)
	router.GET("/alerts/summary", ac.Summary)
	router.GET("/dashboard/stats", dc.GetStats)

	for _, path := range []string{"/alerts/summary?days=0", "/alerts/summary?days=abc", "/dashboard/stats?days=365"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("GET %s=%d want 400", path, w.Code)
		}
	}
}

type linkedResponders struct {
	byUser map[primitive.ObjectID]*models.Responder
}

func (l *linkedResponders) Create(context.Context, *models.Responder) error { return nil }

func (l *linkedResponders) GetByID(context.Context, string) (*models.Responder, error) {
	return nil, utils.NewNotFoundError("Responder")
}

func (l *linkedResponders) GetByUserID(_ context.Context, userID primitive.ObjectID) (*models.Responder, error) {
	if r, ok := l.byUser[userID]; ok {
		return r, nil
	}
	return nil, utils.NewNotFoundError("Responder")
}

func (l *linkedResponders) UpdatePosition(context.Context, string, models.Coordinate, *bool) (*models.Responder, error) {
	return nil, utils.NewNotFoundError("Responder")
}

func (l *linkedResponders) ListAvailable(context.Context) ([]models.Responder, error) { return nil, nil }

func (l *linkedResponders) Near(context.Context, models.Coordinate, []models.ResponderRole, float64, int) ([]models.ResponderRef, error) {
	return nil, nil
}

func TestAcknowledgeForAnotherResponderForbidden(t *testing.T) {
	t.Parallel()

	officer := primitive.NewObjectID()
	registry := &linkedResponders{byUser: map[primitive.ObjectID]*models.Responder{
		officer: {ID: primitive.NewObjectID(), UserID: officer},
	}}
	ac := NewAlertController(nil, nil, services.NewResponderService(registry, nil, 0, 0))

	router := gin.New()
	router.POST("/alerts/:id/acknowledge", asUser(officer.Hex(), models.RoleResponder), ac.Acknowledge)

	path := "/alerts/" + primitive.NewObjectID().Hex() + "/acknowledge"
	w, _ := doJSON(t, router, http.MethodPost, path, models.AcknowledgeRequest{ResponderID: primitive.NewObjectID().Hex()})
	if w.Code != http.StatusForbidden {
		t.Fatalf("POST %s=%d want 403 (%s)", path, w.Code, w.Body.String())
	}
}
