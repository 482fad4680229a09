package admin

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"wedding-rsvp/internal/models"
)

// Stats summarizes the guest list for the dashboard
type Stats struct {
	Total     int            `json:"total"`
	Confirmed int            `json:"confirmed"`
	Pending   int            `json:"pending"`
	Declined  int            `json:"declined"`
	Request   int            `json:"request"`
	VIP       int            `json:"vip"`
	TotalPax  int            `json:"totalPax"`
	ByAddedBy map[string]int `json:"byAddedBy"`
}

// Statistics counts the current directory
func (s *Service) Statistics(ctx context.Context) (Stats, error) {
	guests, err := s.dir.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(guests), nil
}

// Summarize counts guests by status, VIP flag and who added them. TotalPax
// adds up every invitation's allowance.
func Summarize(guests []models.Guest) Stats {
	st := Stats{ByAddedBy: map[string]int{}}
	for _, g := range guests {
		st.Total++
		switch g.Status {
		case models.StatusConfirmed:
			st.Confirmed++
		case models.StatusDeclined:
			st.Declined++
		case models.StatusRequest:
			st.Request++
		default:
			st.Pending++
		}
		if g.IsVIP {
			st.VIP++
		}
		st.TotalPax += models.NormalizeAllowance(g.AllowedGuests)

		addedBy := g.AddedBy
		if addedBy == "" {
			addedBy = "Unknown"
		}
		st.ByAddedBy[addedBy]++
	}
	return st
}

// Filter narrows the dashboard list. Join requests are never included.
type Filter struct {
	Search string
	Status models.GuestStatus
	VIP    *bool
}

// Apply returns the guests that pass the filter, in order
func (f Filter) Apply(guests []models.Guest) []models.Guest {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]models.Guest, 0, len(guests))
	for _, g := range guests {
		if g.Status == models.StatusRequest {
			continue
		}
		if f.Status != "" && g.Status != f.Status {
			continue
		}
		if f.VIP != nil && g.IsVIP != *f.VIP {
			continue
		}
		if term != "" && !searchHit(g, term) {
			continue
		}
		out = append(out, g)
	}
	return out
}

// Requests returns the join requests waiting for approval
func Requests(guests []models.Guest) []models.Guest {
	out := make([]models.Guest, 0)
	for _, g := range guests {
		if g.Status == models.StatusRequest {
			out = append(out, g)
		}
	}
	return out
}

func searchHit(g models.Guest, term string) bool {
	if strings.Contains(strings.ToLower(g.Name), term) || strings.Contains(strings.ToLower(g.Role), term) {
		return true
	}
	for _, c := range g.Companions {
		if strings.Contains(strings.ToLower(c.Name), term) {
			return true
		}
	}
	return false
}

// Messages returns guests who left a note for the couple
func Messages(guests []models.Guest) []models.Guest {
	out := make([]models.Guest, 0)
	for _, g := range guests {
		if strings.TrimSpace(g.Message) != "" {
			out = append(out, g)
		}
	}
	return out
}

var csvHeader = []string{"Name", "Role", "Email", "Contact", "Status", "Allowed Guests", "Table", "VIP", "Added By", "Companions"}

// ExportCSV writes guests in the dashboard's export layout
func ExportCSV(w io.Writer, guests []models.Guest) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, g := range guests {
		companions := make([]string, 0, len(g.Companions))
		for _, c := range g.Companions {
			companions = append(companions, fmt.Sprintf("%s (%s)", c.Name, c.Relationship))
		}
		record := []string{
			g.Name,
			g.Role,
			g.Email,
			g.Contact,
			string(g.Status),
			strconv.Itoa(g.AllowedGuests),
			g.TableNumber,
			strconv.FormatBool(g.IsVIP),
			g.AddedBy,
			strings.Join(companions, "; "),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
