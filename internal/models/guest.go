package models

import (
	"strings"
	"time"
)

// Guest represents one invitation in the guest directory
type Guest struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Role          string      `json:"role"`
	Email         string      `json:"email"`
	Contact       string      `json:"contact"`
	Message       string      `json:"message"`
	AllowedGuests int         `json:"allowedGuests"`
	Companions    []Companion `json:"companions"`
	TableNumber   string      `json:"tableNumber"`
	IsVIP         bool        `json:"isVip"`
	Status        GuestStatus `json:"status"`
	AddedBy       string      `json:"addedBy"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// Companion is a named additional attendee under a guest's allowance
type Companion struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
}

// GuestStatus represents the attendance confirmation status
type GuestStatus string

const (
	StatusPending   GuestStatus = "pending"
	StatusConfirmed GuestStatus = "confirmed"
	StatusDeclined  GuestStatus = "declined"
	StatusRequest   GuestStatus = "request"
)

// Valid reports whether s is one of the known statuses
func (s GuestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusDeclined, StatusRequest:
		return true
	}
	return false
}

// Terminal reports whether s is a final answer from the guest
func (s GuestStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusDeclined
}

// Clone returns a copy of g that shares no companion storage with it. An
// empty companion list stays empty rather than nil.
func (g Guest) Clone() Guest {
	if g.Companions != nil {
		g.Companions = append([]Companion{}, g.Companions...)
	}
	return g
}

// GuestKey identifies a record by id, or by name for legacy callers.
// ID takes precedence when both are set.
type GuestKey struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// ByID returns a key for the given id
func ByID(id string) GuestKey {
	return GuestKey{ID: id}
}

// ByName returns a key for the given name
func ByName(name string) GuestKey {
	return GuestKey{Name: name}
}

// IsZero reports whether the key names nothing
func (k GuestKey) IsZero() bool {
	return strings.TrimSpace(k.ID) == "" && strings.TrimSpace(k.Name) == ""
}

// Matches reports whether g is the record the key refers to. Names compare
// exactly after trimming, mirroring the sheet lookups.
func (k GuestKey) Matches(g Guest) bool {
	if id := strings.TrimSpace(k.ID); id != "" {
		return g.ID == id
	}
	return strings.TrimSpace(g.Name) == strings.TrimSpace(k.Name)
}

func (k GuestKey) String() string {
	if k.ID != "" {
		return "id=" + k.ID
	}
	return "name=" + k.Name
}

// NewGuest holds the fields accepted when creating a record
type NewGuest struct {
	Name          string      `json:"name" validate:"required,max=200"`
	Role          string      `json:"role" validate:"max=200"`
	Email         string      `json:"email" validate:"omitempty,email"`
	Contact       string      `json:"contact"`
	Message       string      `json:"message" validate:"max=2000"`
	AllowedGuests int         `json:"allowedGuests" validate:"gte=0,lte=50"`
	Companions    []Companion `json:"companions"`
	TableNumber   string      `json:"tableNumber"`
	IsVIP         bool        `json:"isVip"`
	Status        GuestStatus `json:"status" validate:"omitempty,oneof=pending confirmed declined request"`
	AddedBy       string      `json:"addedBy"`
}

// GuestPatch is a merge-patch: nil fields are left untouched
type GuestPatch struct {
	Name          *string      `json:"name,omitempty"`
	Role          *string      `json:"role,omitempty"`
	Email         *string      `json:"email,omitempty"`
	Contact       *string      `json:"contact,omitempty"`
	Message       *string      `json:"message,omitempty"`
	AllowedGuests *int         `json:"allowedGuests,omitempty"`
	Companions    *[]Companion `json:"companions,omitempty"`
	TableNumber   *string      `json:"tableNumber,omitempty"`
	IsVIP         *bool        `json:"isVip,omitempty"`
	Status        *GuestStatus `json:"status,omitempty"`
	AddedBy       *string      `json:"addedBy,omitempty"`

	// IfUpdatedAt, when set, makes the update conditional on the stored
	// updatedAt still being this value.
	IfUpdatedAt *time.Time `json:"ifUpdatedAt,omitempty"`
}

// Apply merges the patch into g. Strings are trimmed and a non-positive
// allowance falls back to 1, as the sheet does.
func (p GuestPatch) Apply(g *Guest) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&g.Name, p.Name)
	set(&g.Role, p.Role)
	set(&g.Email, p.Email)
	set(&g.Contact, p.Contact)
	set(&g.Message, p.Message)
	set(&g.TableNumber, p.TableNumber)
	set(&g.AddedBy, p.AddedBy)
	if p.AllowedGuests != nil {
		g.AllowedGuests = NormalizeAllowance(*p.AllowedGuests)
	}
	if p.Companions != nil {
		g.Companions = append([]Companion{}, (*p.Companions)...)
	}
	if p.IsVIP != nil {
		g.IsVIP = *p.IsVIP
	}
	if p.Status != nil {
		g.Status = *p.Status
	}
}

// Empty reports whether the patch changes no field
func (p GuestPatch) Empty() bool {
	return p.Name == nil && p.Role == nil && p.Email == nil && p.Contact == nil &&
		p.Message == nil && p.AllowedGuests == nil && p.Companions == nil &&
		p.TableNumber == nil && p.IsVIP == nil && p.Status == nil && p.AddedBy == nil
}

// NormalizeAllowance maps missing or invalid headcounts to 1
func NormalizeAllowance(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// Build turns creation fields into a record with defaults applied. Identity
// and timestamps are left to the store.
func (n NewGuest) Build() Guest {
	g := Guest{
		Name:          strings.TrimSpace(n.Name),
		Role:          strings.TrimSpace(n.Role),
		Email:         strings.TrimSpace(n.Email),
		Contact:       strings.TrimSpace(n.Contact),
		Message:       strings.TrimSpace(n.Message),
		AllowedGuests: NormalizeAllowance(n.AllowedGuests),
		Companions:    append([]Companion{}, n.Companions...),
		TableNumber:   strings.TrimSpace(n.TableNumber),
		IsVIP:         n.IsVIP,
		Status:        n.Status,
		AddedBy:       strings.TrimSpace(n.AddedBy),
	}
	if g.Status == "" {
		g.Status = StatusPending
	}
	return g
}

// Ptr returns a pointer to v, handy for building patches
func Ptr[T any](v T) *T {
	return &v
}
