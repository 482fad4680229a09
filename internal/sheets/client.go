// Package sheets talks to the guest spreadsheet web app. The app answers
// GET with the guest rows and POST with an "action" body for writes; it
// reports failures as {"error": "..."} with a 200 status.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"wedding-rsvp/internal/models"
)

const maxResponseSize = 10 << 20

// Client implements the guest directory store against the web app URL
type Client struct {
	url  string
	http *http.Client
	log  zerolog.Logger
}

// NewClient creates a client. A zero timeout leaves the transport default.
func NewClient(url string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
		log:  log.With().Str("component", "sheets").Logger(),
	}
}

// List fetches every row with an id
func (c *Client) List(ctx context.Context) ([]models.Guest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var rows []row
	if err := json.Unmarshal(body, &rows); err != nil {
		if appErr := parseAppError(body); appErr != nil {
			return nil, appErr
		}
		return nil, fmt.Errorf("failed to decode guest list: %w", err)
	}

	guests := make([]models.Guest, 0, len(rows))
	for _, r := range rows {
		if r.ID == "" {
			continue
		}
		guests = append(guests, r.guest())
	}
	return guests, nil
}

const defaultRole = "Guest"

// Create appends a row. A blank role is sent as "Guest".
func (c *Client) Create(ctx context.Context, guest models.NewGuest) (models.Guest, error) {
	g := guest.Build()
	if g.Name == "" {
		return models.Guest{}, models.Validation("name is required")
	}
	// the web app rejects rows without a role
	if g.Role == "" {
		g.Role = defaultRole
	}
	payload := map[string]any{
		"action":        "create",
		"name":          g.Name,
		"role":          g.Role,
		"email":         g.Email,
		"contact":       g.Contact,
		"message":       g.Message,
		"allowedGuests": g.AllowedGuests,
		"companions":    g.Companions,
		"tableNumber":   g.TableNumber,
		"isVip":         g.IsVIP,
		"status":        g.Status,
		"addedBy":       g.AddedBy,
	}

	var resp struct {
		Guest row `json:"guest"`
	}
	if err := c.post(ctx, payload, &resp); err != nil {
		return models.Guest{}, err
	}
	if resp.Guest.ID == "" {
		return models.Guest{}, errors.New("web app returned no guest id")
	}
	return resp.Guest.guest(), nil
}

// Update sends only the fields present in patch. The web app addresses rows
// by id, so name keys and the updatedAt token are resolved by listing first;
// that check is not atomic with the write.
func (c *Client) Update(ctx context.Context, key models.GuestKey, patch models.GuestPatch) (models.Guest, error) {
	current, err := c.resolve(ctx, key)
	if err != nil {
		return models.Guest{}, err
	}
	if patch.IfUpdatedAt != nil && !current.UpdatedAt.IsZero() && !patch.IfUpdatedAt.Equal(current.UpdatedAt) {
		return models.Guest{}, &models.ConflictError{ID: current.ID, Reason: "record changed since it was read"}
	}

	payload := map[string]any{"action": "update", "id": current.ID}
	putString := func(name string, v *string) {
		if v != nil {
			payload[name] = strings.TrimSpace(*v)
		}
	}
	putString("name", patch.Name)
	putString("role", patch.Role)
	putString("email", patch.Email)
	putString("contact", patch.Contact)
	putString("message", patch.Message)
	putString("tableNumber", patch.TableNumber)
	putString("addedBy", patch.AddedBy)
	if patch.AllowedGuests != nil {
		payload["allowedGuests"] = models.NormalizeAllowance(*patch.AllowedGuests)
	}
	if patch.Companions != nil {
		payload["companions"] = *patch.Companions
	}
	if patch.IsVIP != nil {
		payload["isVip"] = *patch.IsVIP
	}
	if patch.Status != nil {
		payload["status"] = *patch.Status
	}

	if err := c.post(ctx, payload, nil); err != nil {
		return models.Guest{}, err
	}

	updated, err := c.resolve(ctx, models.ByID(current.ID))
	if err != nil {
		// The write went through; fall back to applying the patch locally.
		c.log.Warn().Err(err).Str("id", current.ID).Msg("Could not re-read guest after update")
		patch.Apply(&current)
		current.UpdatedAt = time.Now().UTC()
		return current, nil
	}
	return updated, nil
}

// Delete removes the row
func (c *Client) Delete(ctx context.Context, key models.GuestKey) error {
	id := strings.TrimSpace(key.ID)
	if id == "" {
		current, err := c.resolve(ctx, key)
		if err != nil {
			return err
		}
		id = current.ID
	}
	return c.post(ctx, map[string]any{"action": "delete", "id": id}, nil)
}

func (c *Client) resolve(ctx context.Context, key models.GuestKey) (models.Guest, error) {
	guests, err := c.List(ctx)
	if err != nil {
		return models.Guest{}, err
	}
	for _, g := range guests {
		if key.Matches(g) {
			return g, nil
		}
	}
	return models.Guest{}, models.NotFound(key.String())
}

func (c *Client) post(ctx context.Context, payload any, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	// text/plain keeps the web app from requiring a CORS preflight
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	body, err := c.do(req)
	if err != nil {
		return err
	}
	if appErr := parseAppError(body); appErr != nil {
		return appErr
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &models.StoreError{Op: strings.ToLower(req.Method), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &models.StoreError{Op: strings.ToLower(req.Method), Err: err}
	}

	c.log.Debug().
		Str("method", req.Method).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("Web app request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &models.StoreError{
			Op:  strings.ToLower(req.Method),
			Err: fmt.Errorf("web app responded %d", resp.StatusCode),
		}
	}
	return body, nil
}

// parseAppError maps an {"error": ...} body to the matching error kind
func parseAppError(body []byte) error {
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Error == "" {
		return nil
	}
	msg := strings.TrimPrefix(resp.Error, "Error: ")
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "not found with id"):
		return models.NotFound(msg)
	case strings.Contains(lower, "required"):
		return models.Validation(msg)
	}
	return &models.StoreError{Op: "web app", Err: errors.New(msg)}
}

// row is the JSON shape the web app produces. Cells come back as whatever
// type the sheet holds, so loosely typed fields use flexString.
type row struct {
	ID            flexString         `json:"id"`
	Name          flexString         `json:"name"`
	Role          flexString         `json:"role"`
	Email         flexString         `json:"email"`
	Contact       flexString         `json:"contact"`
	Message       flexString         `json:"message"`
	AllowedGuests flexString         `json:"allowedGuests"`
	Companions    []models.Companion `json:"companions"`
	TableNumber   flexString         `json:"tableNumber"`
	IsVIP         bool               `json:"isVip"`
	Status        flexString         `json:"status"`
	AddedBy       flexString         `json:"addedBy"`
	CreatedAt     flexString         `json:"createdAt"`
	UpdatedAt     flexString         `json:"updatedAt"`
}

func (r row) guest() models.Guest {
	allowed, _ := strconv.Atoi(string(r.AllowedGuests))
	g := models.Guest{
		ID:            string(r.ID),
		Name:          string(r.Name),
		Role:          string(r.Role),
		Email:         string(r.Email),
		Contact:       string(r.Contact),
		Message:       string(r.Message),
		AllowedGuests: models.NormalizeAllowance(allowed),
		Companions:    r.Companions,
		TableNumber:   string(r.TableNumber),
		IsVIP:         r.IsVIP,
		Status:        models.GuestStatus(r.Status),
		AddedBy:       string(r.AddedBy),
		CreatedAt:     parseTime(string(r.CreatedAt)),
		UpdatedAt:     parseTime(string(r.UpdatedAt)),
	}
	if g.Companions == nil {
		g.Companions = []models.Companion{}
	}
	if g.Status == "" {
		g.Status = models.StatusPending
	}
	return g
}

type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(data) == "null" {
		*f = ""
		return nil
	}
	*f = flexString(strings.Trim(string(data), " "))
	return nil
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
