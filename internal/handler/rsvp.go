package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"wedding-rsvp/internal/directory"
	"wedding-rsvp/internal/models"
	"wedding-rsvp/internal/rsvp"
	"wedding-rsvp/internal/whatsapp"
)

// Sender delivers a text message to a phone number
type Sender interface {
	SendMessage(ctx context.Context, phoneNumber, message string) error
}

// Directory is the read side of the guest directory
type Directory interface {
	List(ctx context.Context) ([]models.Guest, error)
	Get(ctx context.Context, key models.GuestKey) (models.Guest, error)
}

type Config struct {
	// CountryCode is prefixed to contact numbers written in local format
	CountryCode     string
	WeddingDate     string
	WeddingLocation string
	BrideName       string
	GroomName       string
}

type RSVPHandler struct {
	sender Sender
	dir    Directory
	engine *rsvp.Engine
	config *Config
	log    zerolog.Logger

	mu       sync.Mutex
	sessions map[string]string             // phone -> guest id from an "rsvp <name>" lookup
	replied  map[string]models.GuestStatus // guest id -> answer already confirmed over chat
}

// NewRSVPHandler creates a new RSVP handler
func NewRSVPHandler(sender Sender, dir Directory, engine *rsvp.Engine, cfg *Config, log zerolog.Logger) *RSVPHandler {
	return &RSVPHandler{
		sender:   sender,
		dir:      dir,
		engine:   engine,
		config:   cfg,
		log:      log.With().Str("component", "rsvp-chat").Logger(),
		sessions: make(map[string]string),
		replied:  make(map[string]models.GuestStatus),
	}
}

// HandleText processes one incoming chat message.
//
// "rsvp <name>" looks the invitation up by name and binds it to the sender.
// A yes or no answer is then recorded for the bound guest, or for the guest
// whose contact number is the sender's. Other texts are ignored.
func (h *RSVPHandler) HandleText(ctx context.Context, phone, text string) error {
	phone = h.normalize(phone)
	text = strings.TrimSpace(text)
	if phone == "" || text == "" {
		return nil
	}

	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "rsvp ") || lower == "rsvp" {
		return h.lookup(ctx, phone, strings.TrimSpace(text[len("rsvp"):]))
	}

	status, ambiguous := intent(text)
	if status == "" && !ambiguous {
		return nil
	}

	guest, ok, err := h.guestFor(ctx, phone)
	if err != nil {
		return fmt.Errorf("failed to resolve guest: %w", err)
	}
	if !ok {
		// not an invited guest, might be a regular conversation
		return nil
	}
	if ambiguous {
		return h.reply(ctx, phone, "Sorry, we couldn't tell whether that was a yes or a no. Please reply with just *YES* or *NO*.")
	}
	return h.answer(ctx, phone, guest, status)
}

func (h *RSVPHandler) lookup(ctx context.Context, phone, name string) error {
	phase, err := h.engine.Lookup(ctx, name)
	if err != nil {
		var verr *models.ValidationError
		var nerr *models.NotFoundError
		switch {
		case errors.As(err, &verr):
			return h.reply(ctx, phone, fmt.Sprintf("Sorry, %s. Send *RSVP* followed by your full name.", verr.Message))
		case errors.As(err, &nerr):
			return h.reply(ctx, phone, fmt.Sprintf("Sorry, %s.", nerr.What))
		}
		if sendErr := h.reply(ctx, phone, "Our guest list is unavailable right now, please try again in a few minutes."); sendErr != nil {
			h.log.Error().Err(sendErr).Str("phone", phone).Msg("Failed to send retry notice")
		}
		return fmt.Errorf("failed to look up guest: %w", err)
	}

	g := phase.Guest()
	if _, answered := phase.(rsvp.AnsweredPhase); answered {
		return h.reply(ctx, phone, fmt.Sprintf("Hi %s! We already have your response: *%s*. Contact us if anything changed.", g.Name, g.Status))
	}

	h.mu.Lock()
	h.sessions[phone] = g.ID
	h.mu.Unlock()

	seats := "1 seat"
	if g.AllowedGuests > 1 {
		seats = fmt.Sprintf("%d seats", g.AllowedGuests)
	}
	return h.reply(ctx, phone, fmt.Sprintf(
		"Hi %s! We found your invitation with %s reserved.\n\nReply with:\n✅ *YES* to accept\n❌ *NO* to decline",
		g.Name, seats,
	))
}

func (h *RSVPHandler) answer(ctx context.Context, phone string, g models.Guest, status models.GuestStatus) error {
	if !rsvp.CanRespond(g) {
		return h.reply(ctx, phone, fmt.Sprintf("We already have your response: *%s*. Contact us if anything changed.", g.Status))
	}
	if status == models.StatusConfirmed && g.AllowedGuests > 1 {
		return h.reply(ctx, phone, fmt.Sprintf(
			"Your invitation has %d seats, so we need the names of your companions. Please confirm through the RSVP page.",
			g.AllowedGuests,
		))
	}

	updated, err := h.engine.Submit(ctx, g.ID, rsvp.Response{Status: status})
	if err != nil {
		if models.IsConflict(err) {
			return h.reply(ctx, phone, "We already have your response. Contact us if anything changed.")
		}
		return fmt.Errorf("failed to update RSVP: %w", err)
	}

	h.mu.Lock()
	delete(h.sessions, phone)
	h.replied[updated.ID] = updated.Status
	h.mu.Unlock()

	if err := h.reply(ctx, phone, h.confirmation(updated)); err != nil {
		return fmt.Errorf("failed to send confirmation: %w", err)
	}
	return nil
}

// guestFor finds the guest the sender speaks for: a guest bound by an earlier
// lookup first, then one whose contact number matches.
func (h *RSVPHandler) guestFor(ctx context.Context, phone string) (models.Guest, bool, error) {
	h.mu.Lock()
	id, bound := h.sessions[phone]
	h.mu.Unlock()
	if bound {
		g, err := h.dir.Get(ctx, models.ByID(id))
		if err == nil {
			return g, true, nil
		}
		if !models.IsNotFound(err) {
			return models.Guest{}, false, err
		}
		h.mu.Lock()
		delete(h.sessions, phone)
		h.mu.Unlock()
	}

	guests, err := h.dir.List(ctx)
	if err != nil {
		return models.Guest{}, false, err
	}
	for _, g := range guests {
		if g.Status == models.StatusRequest || g.Contact == "" {
			continue
		}
		if h.normalize(g.Contact) == phone {
			return g, true, nil
		}
	}
	return models.Guest{}, false, nil
}

// Notify messages a guest when their status changes to an answer recorded
// elsewhere, such as the RSVP page or the admin dashboard. Edits that leave
// the status alone send nothing.
func (h *RSVPHandler) Notify(ctx context.Context, ev directory.Event) error {
	g := ev.Guest
	if ev.Kind != directory.EventUpdated || !g.Status.Terminal() || g.Contact == "" {
		return nil
	}
	if ev.Previous == "" || ev.Previous == g.Status {
		return nil
	}

	h.mu.Lock()
	answered, ok := h.replied[g.ID]
	delete(h.replied, g.ID)
	h.mu.Unlock()
	if ok && answered == g.Status {
		return nil
	}

	if err := h.reply(ctx, g.Contact, h.confirmation(g)); err != nil {
		return fmt.Errorf("failed to notify %s: %w", g.ID, err)
	}
	return nil
}

// Run feeds directory events to Notify until ctx is done or events closes
func (h *RSVPHandler) Run(ctx context.Context, events <-chan directory.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := h.Notify(ctx, ev); err != nil {
				h.log.Error().Err(err).Msg("Error notifying guest")
			}
		}
	}
}

// SendInvitation sends the wedding invitation to a guest's contact number
func (h *RSVPHandler) SendInvitation(ctx context.Context, id string) error {
	g, err := h.dir.Get(ctx, models.ByID(id))
	if err != nil {
		return err
	}
	if strings.TrimSpace(g.Contact) == "" {
		return models.Validation(fmt.Sprintf("%s has no contact number", g.Name))
	}

	message := fmt.Sprintf(
		"🎉 *Wedding Invitation*\n\n"+
			"Dear %s,\n\n"+
			"You are cordially invited to celebrate the wedding of\n\n"+
			"*%s* & *%s*\n\n"+
			"📅 Date: %s\n"+
			"📍 Location: %s\n\n",
		g.Name, h.config.BrideName, h.config.GroomName, h.config.WeddingDate, h.config.WeddingLocation,
	)
	if g.AllowedGuests > 1 {
		message += fmt.Sprintf("We have reserved %d seats for you.\n\n", g.AllowedGuests)
	}
	message += "Reply with:\n✅ *YES* to accept\n❌ *NO* to decline"

	if err := h.reply(ctx, g.Contact, message); err != nil {
		return fmt.Errorf("failed to send invitation: %w", err)
	}
	h.log.Info().Str("id", g.ID).Str("name", g.Name).Msg("Invitation sent")
	return nil
}

func (h *RSVPHandler) confirmation(g models.Guest) string {
	if g.Status == models.StatusDeclined {
		return fmt.Sprintf(
			"Thank you for letting us know. We're sorry you won't be able to join us for the wedding of %s & %s.\n\n"+
				"We'll miss you! 💕",
			h.config.BrideName, h.config.GroomName,
		)
	}
	msg := fmt.Sprintf(
		"🎉 Wonderful! We're so excited to celebrate with you!\n\n"+
			"We've confirmed your attendance for the wedding of %s & %s on %s.",
		h.config.BrideName, h.config.GroomName, h.config.WeddingDate,
	)
	if len(g.Companions) > 0 {
		names := make([]string, len(g.Companions))
		for i, c := range g.Companions {
			names[i] = c.Name
		}
		msg += "\nCompanions: " + strings.Join(names, ", ")
	}
	return msg + "\n\nSee you there! 💕"
}

func (h *RSVPHandler) reply(ctx context.Context, phone, message string) error {
	return h.sender.SendMessage(ctx, h.normalize(phone), message)
}

func (h *RSVPHandler) normalize(phone string) string {
	return whatsapp.NormalizePhoneNumber(phone, h.config.CountryCode)
}
