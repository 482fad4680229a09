package api

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"wedding-rsvp/internal/admin"
	"wedding-rsvp/internal/models"
)

type GuestController struct {
	Admin *admin.Service
}

// RegisterGuestController mounts the guest-list routes. Join requests are
// open to anyone; every other route goes through guard.
func RegisterGuestController(r fiber.Router, guard fiber.Handler, c *GuestController) {
	r.Post("/api/guest-requests", c.createRequest)
	r.Get("/api/guest-requests", guard, c.listRequests)
	r.Put("/api/guest-requests", guard, c.updateJoinRequest)
	r.Delete("/api/guest-requests", guard, c.rejectJoinRequest)
	r.Post("/api/guest-requests/:id/approve", guard, c.approveRequest)

	r.Get("/api/guests", guard, c.listGuests)
	r.Post("/api/guests", guard, c.createGuest)
	r.Put("/api/guests", guard, c.updateGuest)
	r.Delete("/api/guests", guard, c.deleteGuest)
	r.Post("/api/guests/import", guard, c.importGuests)
	r.Get("/api/guests/stats", guard, c.stats)
	r.Get("/api/guests/export", guard, c.export)
	r.Get("/api/guests/messages", guard, c.messages)
}

func (r *GuestController) listGuests(c *fiber.Ctx) error {
	guests, err := r.Admin.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	if c.QueryBool("all", false) {
		return c.JSON(guests)
	}
	f := admin.Filter{
		Search: c.Query("q"),
		Status: models.GuestStatus(c.Query("status")),
	}
	if v := c.Query("vip"); v != "" {
		vip := v == "true"
		f.VIP = &vip
	}
	return c.JSON(f.Apply(guests))
}

func (r *GuestController) createGuest(c *fiber.Ctx) error {
	body := new(models.NewGuest)
	if err := c.BodyParser(body); err != nil {
		return StandardCouldNotParse(c)
	}
	if errs := ValidateStruct(*body); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errs)
	}

	g, err := r.Admin.Create(c.UserContext(), *body, c.QueryBool("force", false))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Guest created successfully",
		"guest":   g,
	})
}

// updateRequest addresses a guest by id, or by its current name for the
// older dashboard which sends originalName.
type updateRequest struct {
	ID           string `json:"id"`
	OriginalName string `json:"originalName"`
	models.GuestPatch
}

func (u *updateRequest) key() models.GuestKey {
	switch {
	case u.ID != "":
		return models.ByID(u.ID)
	case u.OriginalName != "":
		return models.ByName(u.OriginalName)
	case u.Name != nil:
		key := models.ByName(*u.Name)
		u.Name = nil
		return key
	}
	return models.GuestKey{}
}

func (r *GuestController) updateGuest(c *fiber.Ctx) error {
	body := new(updateRequest)
	if err := c.BodyParser(body); err != nil {
		return StandardCouldNotParse(c)
	}

	key := body.key()
	if key.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Guest ID is required for update"})
	}

	g, err := r.Admin.Update(c.UserContext(), key, body.GuestPatch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Guest updated successfully",
		"id":      g.ID,
		"guest":   g,
	})
}

type deleteRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (r *GuestController) deleteGuest(c *fiber.Ctx) error {
	body := new(deleteRequest)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(body); err != nil {
			return StandardCouldNotParse(c)
		}
	}
	if body.ID == "" {
		body.ID = c.Query("id")
	}
	key := models.GuestKey{ID: body.ID, Name: body.Name}
	if key.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Guest ID is required for deletion"})
	}

	if err := r.Admin.Delete(c.UserContext(), key); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Guest deleted successfully"})
}

type importRequest struct {
	Guests []models.NewGuest `json:"guests" validate:"required"`
}

func (r *GuestController) importGuests(c *fiber.Ctx) error {
	body := new(importRequest)
	if err := c.BodyParser(body); err != nil {
		return StandardCouldNotParse(c)
	}
	if body.Guests == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "guests array is required for bulk import"})
	}

	res, err := r.Admin.BulkImport(c.UserContext(), body.Guests)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Bulk import completed. Success: %d, Failed: %d", res.Success, res.Failed),
		"results": res,
	})
}

func (r *GuestController) stats(c *fiber.Ctx) error {
	st, err := r.Admin.Statistics(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(st)
}

func (r *GuestController) export(c *fiber.Ctx) error {
	guests, err := r.Admin.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	var buf bytes.Buffer
	if err := admin.ExportCSV(&buf, admin.Filter{}.Apply(guests)); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="guest-list-%s.csv"`, time.Now().Format("2006-01-02")))
	return c.Send(buf.Bytes())
}

func (r *GuestController) messages(c *fiber.Ctx) error {
	guests, err := r.Admin.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	msgs := admin.Messages(guests)
	if q := strings.ToLower(strings.TrimSpace(c.Query("q"))); q != "" {
		filtered := msgs[:0]
		for _, g := range msgs {
			if strings.Contains(strings.ToLower(g.Name), q) || strings.Contains(strings.ToLower(g.Message), q) {
				filtered = append(filtered, g)
			}
		}
		msgs = filtered
	}
	return c.JSON(msgs)
}

func (r *GuestController) createRequest(c *fiber.Ctx) error {
	body := new(models.NewGuest)
	if err := c.BodyParser(body); err != nil {
		return StandardCouldNotParse(c)
	}
	if errs := ValidateStruct(*body); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errs)
	}

	g, err := r.Admin.Request(c.UserContext(), *body)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Request received",
		"id":      g.ID,
	})
}

func (r *GuestController) listRequests(c *fiber.Ctx) error {
	guests, err := r.Admin.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(admin.Requests(guests))
}

func (r *GuestController) approveRequest(c *fiber.Ctx) error {
	g, err := r.Admin.Approve(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Request approved",
		"guest":   g,
	})
}

// joinRequestEdit is the body the request review screen sends. Name
// addresses the request; field names match case-insensitively.
type joinRequestEdit struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Message *string `json:"message"`
}

func (r *GuestController) updateJoinRequest(c *fiber.Ctx) error {
	body := new(joinRequestEdit)
	if err := c.BodyParser(body); err != nil {
		return StandardCouldNotParse(c)
	}
	key := models.GuestKey{ID: body.ID, Name: body.Name}
	if key.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name is required"})
	}

	g, err := r.Admin.UpdateRequest(c.UserContext(), key, models.GuestPatch{
		Email:   body.Email,
		Contact: body.Phone,
		Message: body.Message,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Request updated",
		"guest":   g,
	})
}

func (r *GuestController) rejectJoinRequest(c *fiber.Ctx) error {
	body := new(deleteRequest)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(body); err != nil {
			return StandardCouldNotParse(c)
		}
	}
	key := models.GuestKey{ID: body.ID, Name: body.Name}
	if key.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name is required"})
	}

	if err := r.Admin.RejectRequest(c.UserContext(), key); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Request deleted"})
}
