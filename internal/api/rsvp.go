package api

import (
	"github.com/gofiber/fiber/v2"

	"wedding-rsvp/internal/models"
	"wedding-rsvp/internal/rsvp"
)

type RSVPController struct {
	Engine *rsvp.Engine
}

func RegisterRSVPController(r fiber.Router, c *RSVPController) {
	r.Post("/api/rsvp/lookup", c.lookup)
	r.Post("/api/rsvp/:id", c.submit)
}

type lookupRequest struct {
	Name string `json:"name"`
}

type lookupResponse struct {
	Phase      string             `json:"phase"`
	Guest      models.Guest       `json:"guest"`
	Companions []models.Companion `json:"companions,omitempty"`
	Slots      int                `json:"slots"`
}

func (r *RSVPController) lookup(c *fiber.Ctx) error {
	body := new(lookupRequest)
	if err := c.BodyParser(body); err != nil {
		return StandardCouldNotParse(c)
	}

	phase, err := r.Engine.Lookup(c.UserContext(), body.Name)
	if err != nil {
		return respondError(c, err)
	}

	resp := lookupResponse{Phase: phase.Kind(), Guest: phase.Guest()}
	if p, ok := phase.(rsvp.RespondPhase); ok {
		resp.Companions = p.Companions
		resp.Slots = p.Slots()
	}
	return c.JSON(resp)
}

func (r *RSVPController) submit(c *fiber.Ctx) error {
	body := new(rsvp.Response)
	if err := c.BodyParser(body); err != nil {
		return StandardCouldNotParse(c)
	}

	g, err := r.Engine.Submit(c.UserContext(), c.Params("id"), *body)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"guest":   g,
	})
}
