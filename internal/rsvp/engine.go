// Package rsvp runs guest self-service: finding an invitation by name and
// recording a single attend/decline answer for it.
//
// A guest moves from pending to confirmed or declined exactly once through
// this package. Later lookups show the recorded answer read-only; only the
// admin service can change it afterwards.
package rsvp

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"wedding-rsvp/internal/match"
	"wedding-rsvp/internal/models"
	"wedding-rsvp/internal/roster"
)

// Directory is the part of the guest directory the engine needs
type Directory interface {
	List(ctx context.Context) ([]models.Guest, error)
	Get(ctx context.Context, key models.GuestKey) (models.Guest, error)
	Update(ctx context.Context, key models.GuestKey, patch models.GuestPatch) (models.Guest, error)
}

// Engine resolves guests and reconciles their responses
type Engine struct {
	dir     Directory
	matcher *match.Matcher
	log     zerolog.Logger
}

// NewEngine creates an engine. A nil matcher uses the default threshold.
func NewEngine(dir Directory, matcher *match.Matcher, log zerolog.Logger) *Engine {
	if matcher == nil {
		matcher = match.New(match.Threshold)
	}
	return &Engine{
		dir:     dir,
		matcher: matcher,
		log:     log.With().Str("component", "rsvp").Logger(),
	}
}

// CanRespond reports whether the guest may still answer through self-service
func CanRespond(g models.Guest) bool {
	return g.Status == models.StatusPending
}

// Lookup finds the invitation for a typed name. Join requests that were not
// approved yet are never matched.
func (e *Engine) Lookup(ctx context.Context, query string) (Phase, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, models.Validation("please enter your name")
	}
	if utf8.RuneCountInString(q) < match.MinQueryLength {
		return nil, models.Validation("please enter your full name")
	}

	guests, err := e.dir.List(ctx)
	if err != nil {
		return nil, err
	}
	invited := make([]models.Guest, 0, len(guests))
	for _, g := range guests {
		if g.Status != models.StatusRequest {
			invited = append(invited, g)
		}
	}

	g, ok := e.matcher.FindMatch(q, invited)
	if !ok {
		e.log.Info().Str("query", q).Msg("No guest matched")
		return nil, &models.NotFoundError{What: "we couldn't find your name, please check the spelling or contact us"}
	}

	e.log.Info().Str("query", q).Str("id", g.ID).Str("status", string(g.Status)).Msg("Guest matched")
	return phaseFor(g), nil
}

// Validate checks a response against the stored guest. Rules apply in order
// and the first failure is returned.
func Validate(g models.Guest, r Response) error {
	if r.Status != models.StatusConfirmed && r.Status != models.StatusDeclined {
		return models.Validation("status required")
	}
	if r.Status == models.StatusConfirmed && g.AllowedGuests > 1 {
		companions := roster.Sync(g.AllowedGuests, r.Companions)
		if missing := roster.Missing(companions); missing > 0 {
			return &models.ValidationError{
				Message:  "missing companion name",
				Required: len(companions),
				Missing:  missing,
			}
		}
	}
	return nil
}

// Submit records the guest's answer. The stored record is re-read so the
// allowance and the once-only rule come from the directory, not the caller.
// Nothing is changed unless the directory accepts the update.
func (e *Engine) Submit(ctx context.Context, id string, r Response) (models.Guest, error) {
	if strings.TrimSpace(id) == "" {
		return models.Guest{}, models.Validation("guest id is required")
	}
	stored, err := e.dir.Get(ctx, models.ByID(id))
	if err != nil {
		return models.Guest{}, err
	}
	if !CanRespond(stored) {
		return models.Guest{}, &models.ConflictError{ID: stored.ID, Reason: "guest has already responded"}
	}
	if err := Validate(stored, r); err != nil {
		return models.Guest{}, err
	}

	updated, err := e.dir.Update(ctx, models.ByID(stored.ID), buildPatch(stored, r))
	if err != nil {
		e.log.Error().Err(err).Str("id", stored.ID).Msg("Failed to record RSVP")
		return models.Guest{}, err
	}

	e.log.Info().
		Str("id", updated.ID).
		Str("status", string(updated.Status)).
		Int("companions", len(updated.Companions)).
		Msg("RSVP recorded")
	return updated, nil
}

func buildPatch(stored models.Guest, r Response) models.GuestPatch {
	companions := []models.Companion{}
	if r.Status == models.StatusConfirmed {
		companions = roster.Trim(roster.Sync(stored.AllowedGuests, r.Companions))
	}

	patch := models.GuestPatch{
		Role:          r.Role,
		Email:         r.Email,
		Contact:       r.Contact,
		Message:       r.Message,
		AllowedGuests: models.Ptr(stored.AllowedGuests),
		Companions:    &companions,
		Status:        models.Ptr(r.Status),
		IfUpdatedAt:   models.Ptr(stored.UpdatedAt),
	}
	if r.Name != nil && strings.TrimSpace(*r.Name) != "" {
		patch.Name = r.Name
	}
	return patch
}
