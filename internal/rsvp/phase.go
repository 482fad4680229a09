package rsvp

import (
	"wedding-rsvp/internal/models"
	"wedding-rsvp/internal/roster"
)

// Phase is the state of the self-service form after a successful lookup.
// It is either RespondPhase or AnsweredPhase.
type Phase interface {
	Kind() string
	Guest() models.Guest
}

// RespondPhase means the guest may answer. Companions already has one slot
// per additional seat.
type RespondPhase struct {
	guest      models.Guest
	Companions []models.Companion
}

func (p RespondPhase) Kind() string        { return "respond" }
func (p RespondPhase) Guest() models.Guest { return p.guest }

// Slots is the number of companion names a confirmation needs
func (p RespondPhase) Slots() int {
	return roster.Slots(p.guest.AllowedGuests)
}

// AnsweredPhase shows a guest's recorded answer read-only
type AnsweredPhase struct {
	guest models.Guest
}

func (p AnsweredPhase) Kind() string        { return "answered" }
func (p AnsweredPhase) Guest() models.Guest { return p.guest }

func phaseFor(g models.Guest) Phase {
	if !CanRespond(g) {
		return AnsweredPhase{guest: g}
	}
	return RespondPhase{
		guest:      g,
		Companions: roster.Sync(g.AllowedGuests, g.Companions),
	}
}

// Response is what a guest submits from the respond phase. Nil contact
// fields keep the stored value. There is no headcount field; the allowance
// always comes from the directory.
type Response struct {
	Status     models.GuestStatus `json:"status"`
	Companions []models.Companion `json:"companions"`
	Name       *string            `json:"name,omitempty"`
	Role       *string            `json:"role,omitempty"`
	Email      *string            `json:"email,omitempty"`
	Contact    *string            `json:"contact,omitempty"`
	Message    *string            `json:"message,omitempty"`
}
