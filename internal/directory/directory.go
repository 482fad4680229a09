// Package directory defines the guest directory contract and the repository
// every other component reads and writes guests through.
package directory

import (
	"context"

	"github.com/rs/zerolog"

	"wedding-rsvp/internal/models"
)

// Store is a backend holding guest records.
//
// Create assigns the id and timestamps and applies defaults. Update applies a
// merge-patch and refreshes updatedAt. Delete removes the record for good.
// Update and Delete return a NotFoundError for unknown keys.
type Store interface {
	List(ctx context.Context) ([]models.Guest, error)
	Create(ctx context.Context, guest models.NewGuest) (models.Guest, error)
	Update(ctx context.Context, key models.GuestKey, patch models.GuestPatch) (models.Guest, error)
	Delete(ctx context.Context, key models.GuestKey) error
}

// Repository is the single entry point to the guest directory. It forwards to
// a Store and announces every successful mutation on its Bus.
type Repository struct {
	store Store
	bus   *Bus
	log   zerolog.Logger
}

// NewRepository creates a repository over store
func NewRepository(store Store, bus *Bus, log zerolog.Logger) *Repository {
	if bus == nil {
		bus = NewBus(log)
	}
	return &Repository{
		store: store,
		bus:   bus,
		log:   log.With().Str("component", "directory").Logger(),
	}
}

// Bus returns the change notification bus
func (r *Repository) Bus() *Bus {
	return r.bus
}

// List returns every guest in directory order
func (r *Repository) List(ctx context.Context) ([]models.Guest, error) {
	guests, err := r.store.List(ctx)
	if err != nil {
		return nil, models.StoreFailure("list", err)
	}
	return guests, nil
}

// Get returns the guest the key refers to
func (r *Repository) Get(ctx context.Context, key models.GuestKey) (models.Guest, error) {
	if key.IsZero() {
		return models.Guest{}, models.Validation("guest id or name is required")
	}
	guests, err := r.List(ctx)
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

// Create adds a guest
func (r *Repository) Create(ctx context.Context, guest models.NewGuest) (models.Guest, error) {
	created, err := r.store.Create(ctx, guest)
	if err != nil {
		return models.Guest{}, models.StoreFailure("create", err)
	}
	r.log.Info().Str("id", created.ID).Str("name", created.Name).Msg("Guest created")
	r.bus.Publish(Event{Kind: EventCreated, Guest: created})
	return created, nil
}

// Update merges patch into the guest the key refers to
func (r *Repository) Update(ctx context.Context, key models.GuestKey, patch models.GuestPatch) (models.Guest, error) {
	if key.IsZero() {
		return models.Guest{}, models.Validation("guest id or name is required")
	}
	var previous models.GuestStatus
	if before, err := r.Get(ctx, key); err == nil {
		previous = before.Status
	}
	updated, err := r.store.Update(ctx, key, patch)
	if err != nil {
		return models.Guest{}, models.StoreFailure("update", err)
	}
	r.log.Info().Str("id", updated.ID).Str("status", string(updated.Status)).Msg("Guest updated")
	r.bus.Publish(Event{Kind: EventUpdated, Guest: updated, Previous: previous})
	return updated, nil
}

// Delete removes the guest the key refers to
func (r *Repository) Delete(ctx context.Context, key models.GuestKey) error {
	if key.IsZero() {
		return models.Validation("guest id or name is required")
	}
	if err := r.store.Delete(ctx, key); err != nil {
		return models.StoreFailure("delete", err)
	}
	r.log.Info().Str("key", key.String()).Msg("Guest deleted")
	r.bus.Publish(Event{Kind: EventDeleted, Guest: models.Guest{ID: key.ID, Name: key.Name}})
	return nil
}
