package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/fx"

	"wedding-rsvp/internal/admin"
	"wedding-rsvp/internal/handler"
	"wedding-rsvp/internal/models"
)

type consoleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Admin      *admin.Service
	Handler    *handler.RSVPHandler `optional:"true"`
}

// console is the operator's terminal menu
type console struct {
	admin   *admin.Service
	handler *handler.RSVPHandler
	scanner *bufio.Scanner
	out     io.Writer
}

func startConsole(p consoleParams) {
	c := &console{
		admin:   p.Admin,
		handler: p.Handler,
		scanner: bufio.NewScanner(os.Stdin),
		out:     os.Stdout,
	}
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				c.loop(context.Background())
				_ = p.Shutdowner.Shutdown()
			}()
			return nil
		},
	})
}

func (c *console) loop(ctx context.Context) {
	fmt.Fprintln(c.out, "🎉 Wedding RSVP")
	fmt.Fprintln(c.out, "===============")

	for {
		fmt.Fprintln(c.out, "\nCommands:")
		fmt.Fprintln(c.out, "  1. Send invitation")
		fmt.Fprintln(c.out, "  2. View all guests")
		fmt.Fprintln(c.out, "  3. View guests by status")
		fmt.Fprintln(c.out, "  4. Statistics")
		fmt.Fprintln(c.out, "  5. Exit")
		fmt.Fprint(c.out, "\nEnter command (1-5): ")

		if !c.scanner.Scan() {
			return
		}

		switch strings.TrimSpace(c.scanner.Text()) {
		case "1":
			c.sendInvitation(ctx)
		case "2":
			c.viewAllGuests(ctx)
		case "3":
			c.viewGuestsByStatus(ctx)
		case "4":
			c.statistics(ctx)
		case "5":
			fmt.Fprintln(c.out, "Exiting...")
			return
		default:
			fmt.Fprintln(c.out, "Invalid command. Please try again.")
		}
	}
}

func (c *console) sendInvitation(ctx context.Context) {
	if c.handler == nil {
		fmt.Fprintln(c.out, "WhatsApp is disabled, set WHATSAPP_ENABLED=true to send invitations.")
		return
	}

	guests, err := c.admin.List(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "❌ Error loading guests: %v\n", err)
		return
	}
	var pending []models.Guest
	for _, g := range (admin.Filter{Status: models.StatusPending}).Apply(guests) {
		if g.Contact != "" {
			pending = append(pending, g)
		}
	}
	if len(pending) == 0 {
		fmt.Fprintln(c.out, "\nNo pending guests with a contact number.")
		return
	}

	for i, g := range pending {
		fmt.Fprintf(c.out, "  %d. %s (%s)\n", i+1, g.Name, g.Contact)
	}
	fmt.Fprintf(c.out, "Choose a guest (1-%d): ", len(pending))
	if !c.scanner.Scan() {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(c.scanner.Text()))
	if err != nil || n < 1 || n > len(pending) {
		fmt.Fprintln(c.out, "Invalid choice.")
		return
	}
	g := pending[n-1]

	fmt.Fprintf(c.out, "\nSending invitation to %s (%s)...\n", g.Name, g.Contact)
	if err := c.handler.SendInvitation(ctx, g.ID); err != nil {
		fmt.Fprintf(c.out, "❌ Error sending invitation: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "✅ Invitation sent successfully!")
}

func (c *console) viewAllGuests(ctx context.Context) {
	guests, err := c.admin.List(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "❌ Error loading guests: %v\n", err)
		return
	}
	c.printGuests(fmt.Sprintf("All Guests (%d total)", len(guests)), guests)
}

func (c *console) viewGuestsByStatus(ctx context.Context) {
	fmt.Fprintln(c.out, "\nSelect status:")
	fmt.Fprintln(c.out, "  1. Pending")
	fmt.Fprintln(c.out, "  2. Confirmed")
	fmt.Fprintln(c.out, "  3. Declined")
	fmt.Fprintln(c.out, "  4. Requests")
	fmt.Fprint(c.out, "Enter choice (1-4): ")

	if !c.scanner.Scan() {
		return
	}

	var status models.GuestStatus
	switch strings.TrimSpace(c.scanner.Text()) {
	case "1":
		status = models.StatusPending
	case "2":
		status = models.StatusConfirmed
	case "3":
		status = models.StatusDeclined
	case "4":
		status = models.StatusRequest
	default:
		fmt.Fprintln(c.out, "Invalid choice.")
		return
	}

	guests, err := c.admin.List(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "❌ Error loading guests: %v\n", err)
		return
	}
	var selected []models.Guest
	if status == models.StatusRequest {
		selected = admin.Requests(guests)
	} else {
		selected = admin.Filter{Status: status}.Apply(guests)
	}
	if len(selected) == 0 {
		fmt.Fprintf(c.out, "\nNo guests with status '%s'.\n", status)
		return
	}
	c.printGuests(fmt.Sprintf("Guests with status '%s' (%d total)", status, len(selected)), selected)
}

func (c *console) statistics(ctx context.Context) {
	st, err := c.admin.Statistics(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "❌ Error loading statistics: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "\n📊 Statistics")
	fmt.Fprintln(c.out, strings.Repeat("-", 60))
	fmt.Fprintf(c.out, "Invitations: %d (%d seats)\n", st.Total, st.TotalPax)
	fmt.Fprintf(c.out, "Confirmed:   %d\n", st.Confirmed)
	fmt.Fprintf(c.out, "Declined:    %d\n", st.Declined)
	fmt.Fprintf(c.out, "Pending:     %d\n", st.Pending)
	fmt.Fprintf(c.out, "Requests:    %d\n", st.Request)
	fmt.Fprintf(c.out, "VIP:         %d\n", st.VIP)
	for who, n := range st.ByAddedBy {
		fmt.Fprintf(c.out, "Added by %s: %d\n", who, n)
	}
}

func (c *console) printGuests(title string, guests []models.Guest) {
	if len(guests) == 0 {
		fmt.Fprintln(c.out, "\nNo guests found.")
		return
	}

	fmt.Fprintf(c.out, "\n📋 %s:\n", title)
	fmt.Fprintln(c.out, strings.Repeat("-", 60))
	for _, g := range guests {
		fmt.Fprintf(c.out, "Name: %s\n", g.Name)
		if g.Contact != "" {
			fmt.Fprintf(c.out, "Phone: %s\n", g.Contact)
		}
		fmt.Fprintf(c.out, "Status: %s\n", g.Status)
		fmt.Fprintf(c.out, "Seats: %d\n", g.AllowedGuests)
		for _, comp := range g.Companions {
			if comp.Name != "" {
				fmt.Fprintf(c.out, "  + %s\n", comp.Name)
			}
		}
		if !g.UpdatedAt.IsZero() {
			fmt.Fprintf(c.out, "Updated: %s\n", g.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(c.out, strings.Repeat("-", 60))
	}
}
