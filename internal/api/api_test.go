package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-rsvp/internal/admin"
	"wedding-rsvp/internal/directory"
	"wedding-rsvp/internal/models"
	"wedding-rsvp/internal/rsvp"
)

type fixture struct {
	app  *fiber.App
	repo *directory.Repository
}

func newFixture(t *testing.T, store directory.Store, token string) *fixture {
	t.Helper()
	repo := directory.NewRepository(store, nil, zerolog.Nop())
	app := CreateServer(ServerConfig{AppName: "test", Timeout: 5 * time.Second, BodyLimit: 1 << 20, IsProduction: true}, zerolog.Nop())
	RegisterGuestController(app, AdminOnly(token), &GuestController{Admin: admin.NewService(repo, zerolog.Nop())})
	RegisterRSVPController(app, &RSVPController{Engine: rsvp.NewEngine(repo, nil, zerolog.Nop())})
	return &fixture{app: app, repo: repo}
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers ...string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func seed() *directory.MemoryStore {
	return directory.NewMemoryStore(
		models.Guest{ID: "g1", Name: "Maria Dela Cruz", AllowedGuests: 3, Status: models.StatusPending, Companions: []models.Companion{}},
		models.Guest{ID: "g2", Name: "John Smith", AllowedGuests: 1, Status: models.StatusConfirmed, Message: "Congrats!"},
	)
}

func TestRSVPFlow(t *testing.T) {
	f := newFixture(t, seed(), "")

	code, body := f.do(t, http.MethodPost, "/api/rsvp/lookup", map[string]string{"name": "maria delacruz"})
	require.Equal(t, http.StatusOK, code, string(body))
	var lookup lookupResponse
	require.NoError(t, json.Unmarshal(body, &lookup))
	assert.Equal(t, "respond", lookup.Phase)
	assert.Equal(t, "g1", lookup.Guest.ID)
	assert.Equal(t, 2, lookup.Slots)
	assert.Len(t, lookup.Companions, 2)

	code, body = f.do(t, http.MethodPost, "/api/rsvp/g1", map[string]any{
		"status":        "confirmed",
		"allowedGuests": 10,
		"companions":    []map[string]string{{"name": "Jose"}},
	})
	require.Equal(t, http.StatusBadRequest, code)
	var verr map[string]any
	require.NoError(t, json.Unmarshal(body, &verr))
	assert.Equal(t, "missing companion name", verr["error"])
	assert.EqualValues(t, 2, verr["required"])
	assert.EqualValues(t, 1, verr["missing"])

	code, body = f.do(t, http.MethodPost, "/api/rsvp/g1", map[string]any{
		"status":        "confirmed",
		"allowedGuests": 10,
		"companions":    []map[string]string{{"name": "Jose"}, {"name": "Ana", "relationship": "Daughter"}},
	})
	require.Equal(t, http.StatusOK, code, string(body))
	var submitted struct {
		Success bool         `json:"success"`
		Guest   models.Guest `json:"guest"`
	}
	require.NoError(t, json.Unmarshal(body, &submitted))
	assert.True(t, submitted.Success)
	assert.Equal(t, 3, submitted.Guest.AllowedGuests)
	assert.Len(t, submitted.Guest.Companions, 2)

	code, _ = f.do(t, http.MethodPost, "/api/rsvp/g1", map[string]any{"status": "declined"})
	assert.Equal(t, http.StatusConflict, code)

	code, body = f.do(t, http.MethodPost, "/api/rsvp/lookup", map[string]string{"name": "Maria Dela Cruz"})
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &lookup))
	assert.Equal(t, "answered", lookup.Phase)
	assert.Equal(t, models.StatusConfirmed, lookup.Guest.Status)
}

func TestRSVPLookupErrors(t *testing.T) {
	f := newFixture(t, seed(), "")

	code, _ := f.do(t, http.MethodPost, "/api/rsvp/lookup", map[string]string{"name": "Juan"})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.do(t, http.MethodPost, "/api/rsvp/lookup", map[string]string{"name": "ab"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodPost, "/api/rsvp/g1", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAdminCRUD(t *testing.T) {
	f := newFixture(t, seed(), "")

	code, body := f.do(t, http.MethodPost, "/api/guests", models.NewGuest{Name: "Robert Williams", Role: "Colleague", AllowedGuests: 2})
	require.Equal(t, http.StatusCreated, code, string(body))
	var created struct {
		Guest models.Guest `json:"guest"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Len(t, created.Guest.Companions, 1)

	code, _ = f.do(t, http.MethodPost, "/api/guests", models.NewGuest{Name: "robert williams"})
	assert.Equal(t, http.StatusConflict, code)
	code, _ = f.do(t, http.MethodPost, "/api/guests?force=true", models.NewGuest{Name: "robert williams"})
	assert.Equal(t, http.StatusCreated, code)

	code, body = f.do(t, http.MethodPut, "/api/guests", map[string]any{"id": created.Guest.ID, "allowedGuests": 4, "tableNumber": "T3"})
	require.Equal(t, http.StatusOK, code, string(body))
	g, err := f.repo.Get(context.Background(), models.ByID(created.Guest.ID))
	require.NoError(t, err)
	assert.Equal(t, 4, g.AllowedGuests)
	assert.Len(t, g.Companions, 3)
	assert.Equal(t, "T3", g.TableNumber)
	assert.Equal(t, "Colleague", g.Role)

	code, _ = f.do(t, http.MethodPut, "/api/guests", map[string]any{"originalName": "John Smith", "name": "Johnny Smith"})
	require.Equal(t, http.StatusOK, code)
	_, err = f.repo.Get(context.Background(), models.ByName("Johnny Smith"))
	require.NoError(t, err)

	code, _ = f.do(t, http.MethodPut, "/api/guests", map[string]any{"role": "x"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodDelete, "/api/guests", map[string]string{"name": "Johnny Smith"})
	assert.Equal(t, http.StatusOK, code)
	code, _ = f.do(t, http.MethodDelete, "/api/guests?id=g1", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = f.do(t, http.MethodDelete, "/api/guests?id=g1", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCreatedGuestListsNoCompanionsAsEmpty(t *testing.T) {
	f := newFixture(t, seed(), "")

	code, body := f.do(t, http.MethodPost, "/api/guests", models.NewGuest{Name: "Ana Santos"})
	require.Equal(t, http.StatusCreated, code, string(body))
	assert.Contains(t, string(body), `"companions":[]`)
}

func TestAdminListStatsExportMessages(t *testing.T) {
	f := newFixture(t, seed(), "")

	code, body := f.do(t, http.MethodGet, "/api/guests?status=confirmed", nil)
	require.Equal(t, http.StatusOK, code)
	var guests []models.Guest
	require.NoError(t, json.Unmarshal(body, &guests))
	require.Len(t, guests, 1)
	assert.Equal(t, "g2", guests[0].ID)

	code, body = f.do(t, http.MethodGet, "/api/guests/stats", nil)
	require.Equal(t, http.StatusOK, code)
	var st admin.Stats
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 4, st.TotalPax)

	code, body = f.do(t, http.MethodGet, "/api/guests/export", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, strings.HasPrefix(string(body), "Name,Role,Email"))

	code, body = f.do(t, http.MethodGet, "/api/guests/messages?q=congrats", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &guests))
	require.Len(t, guests, 1)
}

func TestGuestRequestsAndToken(t *testing.T) {
	f := newFixture(t, seed(), "s3cret")

	code, body := f.do(t, http.MethodPost, "/api/guest-requests", models.NewGuest{Name: "Walk In Guest"})
	require.Equal(t, http.StatusCreated, code, string(body))
	var req struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &req))

	code, _ = f.do(t, http.MethodGet, "/api/guest-requests", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = f.do(t, http.MethodGet, "/api/guest-requests", nil, "X-Admin-Token", "s3cret")
	require.Equal(t, http.StatusOK, code)
	var requests []models.Guest
	require.NoError(t, json.Unmarshal(body, &requests))
	require.Len(t, requests, 1)

	code, _ = f.do(t, http.MethodPost, "/api/guest-requests/"+req.ID+"/approve", nil, "X-Admin-Token", "s3cret")
	assert.Equal(t, http.StatusOK, code)

	// guest routes never need the token
	code, _ = f.do(t, http.MethodPost, "/api/rsvp/lookup", map[string]string{"name": "Walk In Guest"})
	assert.Equal(t, http.StatusOK, code)
}

func TestJoinRequestEditAndReject(t *testing.T) {
	f := newFixture(t, seed(), "s3cret")
	ctx := context.Background()

	code, body := f.do(t, http.MethodPost, "/api/guest-requests", models.NewGuest{Name: "Walk In Guest"})
	require.Equal(t, http.StatusCreated, code, string(body))

	edit := map[string]string{"Name": "Walk In Guest", "Email": "walk@example.com", "Phone": "0501234567", "Message": "See you!"}
	code, _ = f.do(t, http.MethodPut, "/api/guest-requests", edit)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = f.do(t, http.MethodPut, "/api/guest-requests", edit, "X-Admin-Token", "s3cret")
	require.Equal(t, http.StatusOK, code, string(body))
	g, err := f.repo.Get(ctx, models.ByName("Walk In Guest"))
	require.NoError(t, err)
	assert.Equal(t, "walk@example.com", g.Email)
	assert.Equal(t, "0501234567", g.Contact)
	assert.Equal(t, "See you!", g.Message)
	assert.Equal(t, models.StatusRequest, g.Status)

	// invited guests are out of reach of the request routes
	code, _ = f.do(t, http.MethodPut, "/api/guest-requests", map[string]string{"Name": "John Smith", "Email": "x@example.com"}, "X-Admin-Token", "s3cret")
	assert.Equal(t, http.StatusConflict, code)
	code, _ = f.do(t, http.MethodDelete, "/api/guest-requests", map[string]string{"Name": "John Smith"}, "X-Admin-Token", "s3cret")
	assert.Equal(t, http.StatusConflict, code)
	code, _ = f.do(t, http.MethodDelete, "/api/guest-requests", map[string]string{}, "X-Admin-Token", "s3cret")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodDelete, "/api/guest-requests", map[string]string{"Name": "Walk In Guest"}, "X-Admin-Token", "s3cret")
	assert.Equal(t, http.StatusOK, code)
	_, err = f.repo.Get(ctx, models.ByName("Walk In Guest"))
	assert.True(t, models.IsNotFound(err))
	_, err = f.repo.Get(ctx, models.ByID("g2"))
	assert.NoError(t, err)
}

type downStore struct {
	directory.MemoryStore
}

func (d *downStore) List(ctx context.Context) ([]models.Guest, error) {
	return nil, errors.New("sheet offline")
}

func TestStoreFailureIsBadGateway(t *testing.T) {
	f := newFixture(t, &downStore{}, "")

	code, body := f.do(t, http.MethodPost, "/api/rsvp/lookup", map[string]string{"name": "Maria"})
	assert.Equal(t, http.StatusBadGateway, code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, true, resp["retryable"])
}
