package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"metro/pkg/model"

	"github.com/urfave/cli/v2"
)

func listStations(c *cli.Context) error {
	stations, err := metroClient(c).Stations(c.Context)
	if err != nil {
		return err
	}

	tw := newTable(c.App.Writer, "#", "CODE", "STATION")
	for _, s := range stations {
		tw.row(s.Index, s.Code, s.Name)
	}
	return tw.flush()
}

func showNetwork(c *cli.Context) error {
	view, err := metroClient(c).Network(c.Context)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "%s: %d stations, %d links\n\n", view.Name, len(view.Stations), view.Edges)
	tw := newTable(c.App.Writer, "STATION", "CONNECTIONS")
	for _, s := range view.Stations {
		neighbors := make([]string, 0, len(s.Neighbors))
		for name, km := range s.Neighbors {
			neighbors = append(neighbors, fmt.Sprintf("%s (%g km)", name, km))
		}
		sort.Strings(neighbors)
		tw.row(fmt.Sprintf("%s [%s]", s.Station.Name, s.Station.Code), strings.Join(neighbors, ", "))
	}
	return tw.flush()
}

func showRoute(c *cli.Context) error {
	route, err := metroClient(c).Route(c.Context, c.String("from"), c.String("to"))
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "%s -> %s\n", route.Source.Name, route.Destination.Name)
	fmt.Fprintf(w, "Path:     %s\n", strings.Join(route.Path, " -> "))
	fmt.Fprintf(w, "Distance: %g km\n", route.DistanceKM)
	fmt.Fprintf(w, "Time:     %d min\n", route.TimeMinutes)
	fmt.Fprintf(w, "Fare:     Rs %d\n", route.Fare)
	return nil
}

func book(c *cli.Context) error {
	req := &model.BookingRequest{
		Source:      c.String("from"),
		Destination: c.String("to"),
	}
	for _, raw := range c.StringSlice("passenger") {
		p, err := parsePassenger(raw)
		if err != nil {
			return err
		}
		req.Passengers = append(req.Passengers, p)
	}

	result, err := metroClient(c).Book(c.Context, req, c.String("idempotency-key"))
	if err != nil {
		return err
	}

	w := c.App.Writer
	if result.Success {
		fmt.Fprintln(w, "Booking confirmed.")
	} else {
		fmt.Fprintf(w, "Only %d of %d seats were available; the rest are waitlisted.\n", len(result.Tickets), len(req.Passengers))
	}
	if err := printTickets(w, result.Tickets); err != nil {
		return err
	}
	if len(result.Waitlisted) > 0 {
		fmt.Fprintln(w)
		if err := printPassengers(w, result.Waitlisted); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "\nSeats available: %d\n", result.Available)
	return nil
}

func release(c *cli.Context) error {
	result, err := metroClient(c).Release(c.Context, c.Int("seats"))
	if err != nil {
		return err
	}

	w := c.App.Writer
	if result.Promoted {
		fmt.Fprintf(w, "Promoted %d waitlisted passengers.\n", len(result.Tickets))
		if err := printTickets(w, result.Tickets); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(w, "Nobody was waiting.")
	}
	fmt.Fprintf(w, "Seats available: %d\n", result.Available)
	return nil
}

func showAvailability(c *cli.Context) error {
	a, err := metroClient(c).Availability(c.Context)
	if err != nil {
		return err
	}

	tw := newTable(c.App.Writer, "TOTAL", "AVAILABLE", "OCCUPIED", "COMMITTED", "WAITLISTED")
	tw.row(a.Total, a.Available, a.Occupied, a.Committed, a.Waitlisted)
	return tw.flush()
}

func showHistory(c *cli.Context) error {
	history, err := metroClient(c).History(c.Context)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Fprintln(c.App.Writer, "No tickets booked yet.")
		return nil
	}

	tw := newTable(c.App.Writer, "TICKET", "NAME", "AGE", "FROM", "TO", "FARE")
	for _, h := range history {
		tw.row(h.Number, h.Passenger.Name, h.Passenger.Age, h.Source, h.Destination, h.Fare)
	}
	return tw.flush()
}

func showWaitlist(c *cli.Context) error {
	waiting, err := metroClient(c).Waitlist(c.Context)
	if err != nil {
		return err
	}
	if len(waiting) == 0 {
		fmt.Fprintln(c.App.Writer, "Waitlist is empty.")
		return nil
	}
	return printPassengers(c.App.Writer, waiting)
}

func showTicket(c *cli.Context) error {
	name, id := c.String("name"), c.String("id")
	if (name == "") == (id == "") {
		return errors.New("exactly one of --name or --id is required")
	}

	mc := metroClient(c)
	var (
		record *model.TicketRecord
		err    error
	)
	if id != "" {
		record, err = mc.Ticket(c.Context, id)
	} else {
		record, err = mc.Passenger(c.Context, name)
	}
	if err != nil {
		return err
	}
	return printTickets(c.App.Writer, []model.TicketRecord{*record})
}

// parsePassenger reads "name:age:phone".
func parsePassenger(raw string) (model.Passenger, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 {
		return model.Passenger{}, fmt.Errorf("passenger %q: want name:age:phone", raw)
	}
	age, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return model.Passenger{}, fmt.Errorf("passenger %q: invalid age: %w", raw, err)
	}
	return model.Passenger{
		Name:  strings.TrimSpace(parts[0]),
		Age:   age,
		Phone: strings.TrimSpace(parts[2]),
	}, nil
}

func printTickets(w io.Writer, tickets []model.TicketRecord) error {
	tw := newTable(w, "TICKET", "ID", "NAME", "FROM", "TO")
	for _, t := range tickets {
		tw.row(t.Number, t.ID, t.Passenger.Name, t.Source, t.Destination)
	}
	return tw.flush()
}

func printPassengers(w io.Writer, passengers []model.Passenger) error {
	tw := newTable(w, "WAITING", "NAME", "FROM", "TO")
	for i, p := range passengers {
		tw.row(i+1, p.Name, p.Source, p.Destination)
	}
	return tw.flush()
}

type table struct {
	tw *tabwriter.Writer
}

func newTable(w io.Writer, headers ...string) *table {
	t := &table{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
	fmt.Fprintln(t.tw, strings.Join(headers, "\t"))
	return t
}

func (t *table) row(cells ...any) {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(t.tw, strings.Join(parts, "\t"))
}

func (t *table) flush() error {
	return t.tw.Flush()
}
