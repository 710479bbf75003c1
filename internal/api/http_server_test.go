package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spacebook/internal/config"
	"spacebook/internal/database"
	"spacebook/internal/models"
	"spacebook/internal/repository"
	"spacebook/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetReservation(t *testing.T) {
	ts := newTestServer(t, testAPIConfig())
	t.Cleanup(ts.Close)

	created := createTestReservation(t, ts, 1, "2026-09-01T10:00:00Z", "2026-09-01T11:00:00Z")
	if created.Status != models.StatusPending {
		t.Fatalf("expected pending, got %s", created.Status)
	}
	if created.Version != 1 {
		t.Fatalf("expected version=1, got %d", created.Version)
	}

	resp, err := http.Get(fmt.Sprintf("%s/api/v1/reservations/%d", ts.URL, created.ID))
	require.NoError(t, err)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	var got models.Reservation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "band rehearsal", got.GroupDescription)
}

func TestCreateReservation_ValidationError(t *testing.T) {
	ts := newTestServer(t, testAPIConfig())
	t.Cleanup(ts.Close)

	body := `{"user_id":1,"open_time":"2026-09-01T11:00:00Z","close_time":"2026-09-01T10:00:00Z","number_of_people":4,"group_description":"x"}`
	resp, err := http.Post(ts.URL+"/api/v1/reservations", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var errBody struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
	assert.Equal(t, "invalid_ordering", errBody.Kind)
}

func TestCreateReservation_InvalidJSON(t *testing.T) {
	ts := newTestServer(t, testAPIConfig())
	t.Cleanup(ts.Close)

	resp, err := http.Post(ts.URL+"/api/v1/reservations", "application/json", strings.NewReader("not json"))
	require.NoError(t, err)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateReservation_SelfConflict(t *testing.T) {
	ts := newTestServer(t, testAPIConfig())
	t.Cleanup(ts.Close)

	createTestReservation(t, ts, 1, "2026-09-01T10:00:00Z", "2026-09-01T12:00:00Z")

	resp := postReservation(t, ts, 1, "2026-09-01T11:00:00Z", "2026-09-01T13:00:00Z")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestCreateReservation_RateLimited(t *testing.T) {
	ts := newTestServer(t, testAPIConfig())
	t.Cleanup(ts.Close)

	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		day := base.AddDate(0, 0, i)
		createTestReservation(t, ts, 7, day.Format(time.RFC3339), day.Add(time.Hour).Format(time.RFC3339))
	}

	day := base.AddDate(0, 0, 3)
	resp := postReservation(t, ts, 7, day.Format(time.RFC3339), day.Add(time.Hour).Format(time.RFC3339))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
}

func TestApproveCascade(t *testing.T) {
	ts := newTestServer(t, testAPIConfig())
	t.Cleanup(ts.Close)

	winner := createTestReservation(t, ts, 1, "2026-09-01T10:00:00Z", "2026-09-01T12:00:00Z")
	loser := createTestReservation(t, ts, 2, "2026-09-01T11:00:00Z", "2026-09-01T13:00:00Z")
	survivor := createTestReservation(t, ts, 3, "2026-09-01T14:00:00Z", "2026-09-01T15:00:00Z")

	resp := patchReservation(t, ts, winner.ID, fmt.Sprintf(`{"status":"approved","version":%d,"actor_id":99}`, winner.Version))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Reservation models.Reservation `json:"reservation"`
		RejectedIDs []int64            `json:"rejected_ids"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, models.StatusApproved, body.Reservation.Status)
	assert.Equal(t, []int64{loser.ID}, body.RejectedIDs)

	got := getReservation(t, ts, survivor.ID)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestApprove_StaleVersion(t *testing.T) {
	ts := newTestServer(t, testAPIConfig())
	t.Cleanup(ts.Close)

	r := createTestReservation(t, ts, 1, "2026-09-01T10:00:00Z", "2026-09-01T11:00:00Z")

	resp := patchReservation(t, ts, r.ID, fmt.Sprintf(`{"status":"approved","version":%d}`, r.Version+5))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestPatchStatus_MissingVersion(t *testing.T) {
	ts := newTestServer(t, testAPIConfig())
	t.Cleanup(ts.Close)

	r := createTestReservation(t, ts, 1, "2026-09-01T10:00:00Z", "2026-09-01T11:00:00Z")

	resp := patchReservation(t, ts, r.ID, `{"status":"approved"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRejectThenCancelRefused(t *testing.T) {
	ts := newTestServer(t, testAPIConfig())
	t.Cleanup(ts.Close)

	r := createTestReservation(t, ts, 1, "2026-09-01T10:00:00Z", "2026-09-01T11:00:00Z")

	resp := patchReservation(t, ts, r.ID, fmt.Sprintf(`{"status":"rejected","version":%d}`, r.Version))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reject: expected 200, got %d", resp.StatusCode)
	}

	resp = patchReservation(t, ts, r.ID, `{"status":"cancelled","version":2}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("cancel after reject: expected 409, got %d", resp.StatusCode)
	}
}

func TestCancelApproved(t *testing.T) {
	ts := newTestServer(t, testAPIConfig())
	t.Cleanup(ts.Close)

	r := createTestReservation(t, ts, 1, "2026-09-01T10:00:00Z", "2026-09-01T11:00:00Z")

	resp := patchReservation(t, ts, r.ID, fmt.Sprintf(`{"status":"approved","version":%d}`, r.Version))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = patchReservation(t, ts, r.ID, `{"status":"cancelled","version":2}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got models.Reservation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, models.StatusCancelled, got.Status)
}

func TestPatchFields(t *testing.T) {
	ts := newTestServer(t, testAPIConfig())
	t.Cleanup(ts.Close)

	r := createTestReservation(t, ts, 1, "2026-09-01T10:00:00Z", "2026-09-01T11:00:00Z")

	resp := patchReservation(t, ts, r.ID, `{"number_of_people":8,"manager_comment":"bring extra chairs"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got models.Reservation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 8, got.NumberOfPeople)
	assert.Equal(t, "bring extra chairs", got.ManagerComment)
	assert.Equal(t, r.Version+1, got.Version)
}

func TestPatchFields_Empty(t *testing.T) {
	ts := newTestServer(t, testAPIConfig())
	t.Cleanup(ts.Close)

	r := createTestReservation(t, ts, 1, "2026-09-01T10:00:00Z", "2026-09-01T11:00:00Z")

	resp := patchReservation(t, ts, r.ID, `{}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetReservation_NotFound(t *testing.T) {
	ts := newTestServer(t, testAPIConfig())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/v1/reservations/999")
	require.NoError(t, err)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestListReservations_Filters(t *testing.T) {
	ts := newTestServer(t, testAPIConfig())
	t.Cleanup(ts.Close)

	createTestReservation(t, ts, 1, "2026-09-01T10:00:00Z", "2026-09-01T11:00:00Z")
	createTestReservation(t, ts, 2, "2026-09-02T10:00:00Z", "2026-09-02T11:00:00Z")

	resp, err := http.Get(ts.URL + "/api/v1/reservations?user_id=2")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Reservations []models.Reservation `json:"reservations"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Reservations, 1)
	assert.Equal(t, int64(2), body.Reservations[0].UserID)

	resp2, err := http.Get(ts.URL + "/api/v1/reservations?status=bogus")
	require.NoError(t, err)
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad status, got %d", resp2.StatusCode)
	}
}

func TestBusySlots(t *testing.T) {
	ts := newTestServer(t, testAPIConfig())
	t.Cleanup(ts.Close)

	r := createTestReservation(t, ts, 1, "2026-09-01T10:00:00Z", "2026-09-01T11:00:00Z")
	resp := patchReservation(t, ts, r.ID, fmt.Sprintf(`{"status":"approved","version":%d}`, r.Version))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	url := ts.URL + "/api/v1/reservations/busy?start=2026-09-01T00:00:00Z&end=2026-09-02T00:00:00Z"
	resp2, err := http.Get(url)
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	var body struct {
		BusySlots []models.BusySlot `json:"busy_slots"`
	}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&body))

	// 10:00-11:00 with a 10 minute buffer on a 5 minute grid.
	require.Len(t, body.BusySlots, 16)
	assert.Equal(t, "09:50", body.BusySlots[0].Time)
	assert.Equal(t, "11:05", body.BusySlots[len(body.BusySlots)-1].Time)
}

func TestBusySlots_BadParams(t *testing.T) {
	ts := newTestServer(t, testAPIConfig())
	t.Cleanup(ts.Close)

	t.Run("MissingStart", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/reservations/busy?end=2026-09-02T00:00:00Z")
		require.NoError(t, err)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("EndBeforeStart", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/reservations/busy?start=2026-09-02T00:00:00Z&end=2026-09-01T00:00:00Z")
		require.NoError(t, err)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("MethodNotAllowed", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/v1/reservations/busy", "application/json", http.NoBody)
		require.NoError(t, err)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", resp.StatusCode)
		}
	})
}

func TestAuth(t *testing.T) {
	cfg := testAPIConfig()
	cfg.Auth = config.APIAuthConfig{
		Enabled:      true,
		HeaderAPIKey: "x-api-key",
		APIKeys: []config.APIClientKey{
			{Key: "reader-key", Name: "reader", Permissions: []string{"read:reservations"}},
			{Key: "admin-key", Name: "admin"},
		},
	}
	ts := newTestServer(t, cfg)
	t.Cleanup(ts.Close)

	t.Run("MissingKey", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/reservations")
		require.NoError(t, err)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("InvalidKey", func(t *testing.T) {
		req, _ := http.NewRequest("GET", ts.URL+"/api/v1/reservations", http.NoBody)
		req.Header.Set("x-api-key", "wrong")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("ReaderCanRead", func(t *testing.T) {
		req, _ := http.NewRequest("GET", ts.URL+"/api/v1/reservations", http.NoBody)
		req.Header.Set("x-api-key", "reader-key")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
	})

	t.Run("ReaderCannotWrite", func(t *testing.T) {
		body := strings.NewReader(`{"user_id":1}`)
		req, _ := http.NewRequest("POST", ts.URL+"/api/v1/reservations", body)
		req.Header.Set("x-api-key", "reader-key")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("expected 403, got %d", resp.StatusCode)
		}
	})

	t.Run("EmptyPermissionsAllowAll", func(t *testing.T) {
		body := strings.NewReader(`{"user_id":1,"open_time":"2026-09-05T10:00:00Z","close_time":"2026-09-05T11:00:00Z","number_of_people":2,"group_description":"duo"}`)
		req, _ := http.NewRequest("POST", ts.URL+"/api/v1/reservations", body)
		req.Header.Set("x-api-key", "admin-key")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Errorf("expected 201, got %d", resp.StatusCode)
		}
	})
}

func TestRateLimit(t *testing.T) {
	cfg := testAPIConfig()
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 1, Burst: 1}
	ts := newTestServer(t, cfg)
	t.Cleanup(ts.Close)

	resp1, err := http.Get(ts.URL + "/api/v1/reservations")
	require.NoError(t, err)
	resp1.Body.Close()
	if resp1.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp1.StatusCode)
	}

	resp2, err := http.Get(ts.URL + "/api/v1/reservations")
	require.NoError(t, err)
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp2.StatusCode)
	}
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t, testAPIConfig())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/api/v1/reservations")
	require.NoError(t, err)
	defer resp.Body.Close()

	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatalf("expected X-Request-Id header")
	}
}

// Helpers

func testAPIConfig() config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		HTTP:    config.APIHTTPConfig{Enabled: true, Port: 0},
	}
}

func newTestServer(t *testing.T, cfg config.APIConfig) *httptest.Server {
	t.Helper()

	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	booking := config.BookingConfig{
		SlotStepMinutes:    models.DefaultSlotStepMinutes,
		SlotBufferMinutes:  models.DefaultSlotBufferMinutes,
		MaxDurationMinutes: models.DefaultMaxDurationMinutes,
		PendingWindowDays:  models.DefaultPendingWindowDays,
		MaxPendingInWindow: models.DefaultMaxPendingInWindow,
		UserLockTTLSeconds: models.DefaultUserLockTTLSeconds,
	}
	svc := service.NewReservationService(db, repository.NewMemoryLockRepository(), nil, nil, booking, &logger)

	server := NewHTTPServer(cfg, svc, nil, &logger)
	return httptest.NewServer(server.server.Handler)
}

func postReservation(t *testing.T, ts *httptest.Server, userID int64, open, close string) *http.Response {
	t.Helper()
	input := models.ReservationInput{
		UserID:           userID,
		OpenTime:         open,
		CloseTime:        close,
		NumberOfPeople:   4,
		GroupDescription: "band rehearsal",
	}
	body, _ := json.Marshal(input)
	resp, err := http.Post(ts.URL+"/api/v1/reservations", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post reservation: %v", err)
	}
	return resp
}

func patchReservation(t *testing.T, ts *httptest.Server, id int64, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPatch, fmt.Sprintf("%s/api/v1/reservations/%d", ts.URL, id), bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("patch reservation: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("patch reservation: %v", err)
	}
	return resp
}

func createTestReservation(t *testing.T, ts *httptest.Server, userID int64, open, close string) *models.Reservation {
	t.Helper()
	resp := postReservation(t, ts, userID, open, close)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create reservation: expected 201, got %d", resp.StatusCode)
	}

	var r models.Reservation
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		t.Fatalf("decode reservation: %v", err)
	}
	return &r
}

func getReservation(t *testing.T, ts *httptest.Server, id int64) *models.Reservation {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("%s/api/v1/reservations/%d", ts.URL, id))
	if err != nil {
		t.Fatalf("get reservation: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get reservation: expected 200, got %d", resp.StatusCode)
	}

	var r models.Reservation
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		t.Fatalf("decode reservation: %v", err)
	}
	return &r
}
