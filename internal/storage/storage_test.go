package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-rsvp/internal/directory"
	"wedding-rsvp/internal/models"
)

var _ directory.Store = (*Store)(nil)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStorage(filepath.Join(t.TempDir(), "data", "guests.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndList(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	john, err := s.Create(ctx, models.NewGuest{
		Name:          "John Smith",
		Role:          "Friend",
		AllowedGuests: 3,
		Companions: []models.Companion{
			{Name: "Jane Smith", Relationship: "Spouse"},
			{Name: "Little Smith", Relationship: "Child"},
		},
		TableNumber: "T1",
		IsVIP:       true,
		Status:      models.StatusConfirmed,
		AddedBy:     "Groom",
	})
	require.NoError(t, err)
	_, err = s.Create(ctx, models.NewGuest{Name: "Robert Williams"})
	require.NoError(t, err)

	guests, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, guests, 2)

	assert.Equal(t, john.ID, guests[0].ID)
	assert.Equal(t, john.Companions, guests[0].Companions)
	assert.True(t, guests[0].IsVIP)
	assert.Equal(t, models.StatusConfirmed, guests[0].Status)
	assert.True(t, john.CreatedAt.Equal(guests[0].CreatedAt))

	assert.Equal(t, "Robert Williams", guests[1].Name)
	assert.Equal(t, models.StatusPending, guests[1].Status)
	assert.Equal(t, 1, guests[1].AllowedGuests)
	assert.Equal(t, []models.Companion{}, guests[1].Companions)
}

func TestListEmpty(t *testing.T) {
	guests, err := openStore(t).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, guests)
	assert.Empty(t, guests)
}

func TestUpdatePartial(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return t0 }

	g, err := s.Create(ctx, models.NewGuest{Name: "Mary Johnson", Role: "Cousin", Email: "mary.j@example.com"})
	require.NoError(t, err)

	s.now = func() time.Time { return t0.Add(2 * time.Hour) }
	updated, err := s.Update(ctx, models.ByID(g.ID), models.GuestPatch{
		AllowedGuests: models.Ptr(2),
		Companions:    &[]models.Companion{{Name: "Bob Johnson", Relationship: "Partner"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.AllowedGuests)
	assert.True(t, updated.UpdatedAt.Equal(t0.Add(2*time.Hour)))

	guests, err := s.List(ctx)
	require.NoError(t, err)
	got := guests[0]
	assert.Equal(t, "Cousin", got.Role)
	assert.Equal(t, "mary.j@example.com", got.Email)
	assert.Equal(t, []models.Companion{{Name: "Bob Johnson", Relationship: "Partner"}}, got.Companions)
	assert.True(t, got.CreatedAt.Equal(t0))
	assert.True(t, got.UpdatedAt.Equal(t0.Add(2*time.Hour)))
}

func TestUpdateByNameAndStaleToken(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	g, err := s.Create(ctx, models.NewGuest{Name: "Maria Dela Cruz"})
	require.NoError(t, err)

	stale := g.UpdatedAt.Add(-time.Second)
	_, err = s.Update(ctx, models.ByName("Maria Dela Cruz"), models.GuestPatch{
		Status:      models.Ptr(models.StatusDeclined),
		IfUpdatedAt: &stale,
	})
	assert.True(t, models.IsConflict(err))

	updated, err := s.Update(ctx, models.ByName("Maria Dela Cruz"), models.GuestPatch{
		Status:      models.Ptr(models.StatusDeclined),
		IfUpdatedAt: &g.UpdatedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, g.ID, updated.ID)
	assert.Equal(t, models.StatusDeclined, updated.Status)
}

func TestDelete(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	g, err := s.Create(ctx, models.NewGuest{Name: "A"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, models.ByID(g.ID)))
	assert.True(t, models.IsNotFound(s.Delete(ctx, models.ByID(g.ID))))

	_, err = s.Update(ctx, models.ByID(g.ID), models.GuestPatch{})
	assert.True(t, models.IsNotFound(err))
}

func TestLegacyRowsAreNormalized(t *testing.T) {
	s := openStore(t)
	_, err := s.db.Exec(`INSERT INTO guests (id, name, allowed_guests, companions, status, created_at, updated_at)
		VALUES ('legacy', 'Old Row', 0, 'not json', '', '', '')`)
	require.NoError(t, err)

	guests, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, guests, 1)
	assert.Equal(t, 1, guests[0].AllowedGuests)
	assert.Equal(t, models.StatusPending, guests[0].Status)
	assert.Equal(t, []models.Companion{}, guests[0].Companions)
	assert.True(t, guests[0].CreatedAt.IsZero())
}
