// Package admin holds the operator's guest-list operations. Unlike guest
// self-service these may change any field, including status and headcount,
// at any time.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"wedding-rsvp/internal/match"
	"wedding-rsvp/internal/models"
	"wedding-rsvp/internal/roster"
)

// Directory is the guest directory as the admin service uses it
type Directory interface {
	List(ctx context.Context) ([]models.Guest, error)
	Get(ctx context.Context, key models.GuestKey) (models.Guest, error)
	Create(ctx context.Context, guest models.NewGuest) (models.Guest, error)
	Update(ctx context.Context, key models.GuestKey, patch models.GuestPatch) (models.Guest, error)
	Delete(ctx context.Context, key models.GuestKey) error
}

type Service struct {
	dir      Directory
	validate *validator.Validate
	log      zerolog.Logger
}

func NewService(dir Directory, log zerolog.Logger) *Service {
	return &Service{
		dir:      dir,
		validate: validator.New(),
		log:      log.With().Str("component", "admin").Logger(),
	}
}

// Create adds a guest. Unless allowDuplicate is set, a guest whose normalized
// name is already listed is refused with a ConflictError; if the list cannot
// be read the check is skipped.
func (s *Service) Create(ctx context.Context, guest models.NewGuest, allowDuplicate bool) (models.Guest, error) {
	if err := s.check(guest); err != nil {
		return models.Guest{}, err
	}
	if !allowDuplicate {
		if dup, ok := s.findDuplicate(ctx, guest.Name); ok {
			return models.Guest{}, &models.ConflictError{ID: dup.ID, Reason: fmt.Sprintf("a guest named %q already exists", dup.Name)}
		}
	}

	guest.AllowedGuests = models.NormalizeAllowance(guest.AllowedGuests)
	guest.Companions = roster.Trim(roster.Sync(guest.AllowedGuests, guest.Companions))
	return s.dir.Create(ctx, guest)
}

// Request records a self-registered guest waiting for approval
func (s *Service) Request(ctx context.Context, guest models.NewGuest) (models.Guest, error) {
	guest.Status = models.StatusRequest
	guest.TableNumber = ""
	guest.IsVIP = false
	if guest.AddedBy == "" {
		guest.AddedBy = "Guest Request"
	}
	return s.Create(ctx, guest, false)
}

// Approve admits a join request into the guest list as a pending invitation
func (s *Service) Approve(ctx context.Context, id string) (models.Guest, error) {
	stored, err := s.pendingRequest(ctx, models.ByID(id))
	if err != nil {
		return models.Guest{}, err
	}
	return s.dir.Update(ctx, models.ByID(stored.ID), models.GuestPatch{
		Status:      models.Ptr(models.StatusPending),
		IfUpdatedAt: models.Ptr(stored.UpdatedAt),
	})
}

// UpdateRequest edits the contact details of a join request that has not
// been approved yet. Status, seating and headcount stay as they are.
func (s *Service) UpdateRequest(ctx context.Context, key models.GuestKey, patch models.GuestPatch) (models.Guest, error) {
	stored, err := s.pendingRequest(ctx, key)
	if err != nil {
		return models.Guest{}, err
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return models.Guest{}, models.Validation("name cannot be blank")
	}
	return s.dir.Update(ctx, models.ByID(stored.ID), models.GuestPatch{
		Name:        patch.Name,
		Email:       patch.Email,
		Contact:     patch.Contact,
		Message:     patch.Message,
		IfUpdatedAt: models.Ptr(stored.UpdatedAt),
	})
}

// RejectRequest drops a join request. Approved guests are not touched.
func (s *Service) RejectRequest(ctx context.Context, key models.GuestKey) error {
	stored, err := s.pendingRequest(ctx, key)
	if err != nil {
		return err
	}
	if err := s.dir.Delete(ctx, models.ByID(stored.ID)); err != nil {
		return err
	}
	s.log.Info().Str("id", stored.ID).Str("name", stored.Name).Msg("Join request rejected")
	return nil
}

func (s *Service) pendingRequest(ctx context.Context, key models.GuestKey) (models.Guest, error) {
	stored, err := s.dir.Get(ctx, key)
	if err != nil {
		return models.Guest{}, err
	}
	if stored.Status != models.StatusRequest {
		return models.Guest{}, &models.ConflictError{ID: stored.ID, Reason: "guest is not a pending join request"}
	}
	return stored, nil
}

// Update applies a merge-patch. When the headcount or the companions change,
// the companion list is resized to match the resulting headcount.
func (s *Service) Update(ctx context.Context, key models.GuestKey, patch models.GuestPatch) (models.Guest, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return models.Guest{}, models.Validation("name cannot be blank")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return models.Guest{}, models.Validation(fmt.Sprintf("unknown status %q", *patch.Status))
	}
	if patch.AllowedGuests != nil && *patch.AllowedGuests < 1 {
		return models.Guest{}, models.Validation("allowedGuests must be at least 1")
	}

	if patch.AllowedGuests != nil || patch.Companions != nil {
		stored, err := s.dir.Get(ctx, key)
		if err != nil {
			return models.Guest{}, err
		}
		allowed := stored.AllowedGuests
		if patch.AllowedGuests != nil {
			allowed = *patch.AllowedGuests
		}
		current := stored.Companions
		if patch.Companions != nil {
			current = *patch.Companions
		}
		synced := roster.Trim(roster.Sync(allowed, current))
		patch.Companions = &synced
		key = models.ByID(stored.ID)
	}

	updated, err := s.dir.Update(ctx, key, patch)
	if err != nil {
		return models.Guest{}, err
	}
	s.log.Info().Str("id", updated.ID).Msg("Guest edited by admin")
	return updated, nil
}

// Delete removes a guest for good
func (s *Service) Delete(ctx context.Context, key models.GuestKey) error {
	return s.dir.Delete(ctx, key)
}

// List returns the whole directory
func (s *Service) List(ctx context.Context) ([]models.Guest, error) {
	return s.dir.List(ctx)
}

// ImportError describes one row a bulk import rejected
type ImportError struct {
	Index int    `json:"index"`
	Guest string `json:"guest"`
	Error string `json:"error"`
}

// ImportResult summarizes a bulk import
type ImportResult struct {
	Success int           `json:"success"`
	Failed  int           `json:"failed"`
	Errors  []ImportError `json:"errors"`
}

// BulkImport creates every guest it can and reports the rest. A store failure
// stops the import since later rows would fail the same way.
func (s *Service) BulkImport(ctx context.Context, guests []models.NewGuest) (ImportResult, error) {
	res := ImportResult{Errors: []ImportError{}}
	for i, g := range guests {
		if _, err := s.Create(ctx, g, true); err != nil {
			if models.IsRetryable(err) {
				return res, err
			}
			name := g.Name
			if strings.TrimSpace(name) == "" {
				name = "Unknown"
			}
			res.Failed++
			res.Errors = append(res.Errors, ImportError{Index: i, Guest: name, Error: err.Error()})
			continue
		}
		res.Success++
	}
	s.log.Info().Int("success", res.Success).Int("failed", res.Failed).Msg("Bulk import completed")
	return res, nil
}

func (s *Service) check(guest models.NewGuest) error {
	guest.Name = strings.TrimSpace(guest.Name)
	err := s.validate.Struct(guest)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return models.Validation(fmt.Sprintf("%s is invalid (%s)", strings.ToLower(fe.Field()[:1])+fe.Field()[1:], fe.Tag()))
	}
	return models.Validation(err.Error())
}

func (s *Service) findDuplicate(ctx context.Context, name string) (models.Guest, bool) {
	guests, err := s.dir.List(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Duplicate check skipped")
		return models.Guest{}, false
	}
	want := match.Normalize(name)
	for _, g := range guests {
		if match.Normalize(g.Name) == want {
			return g, true
		}
	}
	return models.Guest{}, false
}
