// Command metroctl talks to a running metro service: it lists stations,
// plans routes and manages bookings from the terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"metro/pkg/client"

	"github.com/urfave/cli/v2"
)

const defaultServer = "http://localhost:8080"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "metroctl:", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "metroctl",
		Usage:  "plan metro routes and book tickets",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "metro service base URL",
				EnvVars: []string{"METRO_URL"},
				Value:   defaultServer,
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "stations",
				Usage:  "list stations with their codes",
				Action: listStations,
			},
			{
				Name:    "network",
				Aliases: []string{"map"},
				Usage:   "show every station with its direct connections",
				Action:  showNetwork,
			},
			{
				Name:  "route",
				Usage: "shortest route, travel time and fare between two stations",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "source station code", Required: true},
					&cli.StringFlag{Name: "to", Usage: "destination station code", Required: true},
				},
				Action: showRoute,
			},
			{
				Name:  "book",
				Usage: "book tickets for a group travelling together",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "source station code", Required: true},
					&cli.StringFlag{Name: "to", Usage: "destination station code", Required: true},
					&cli.StringSliceFlag{Name: "passenger", Aliases: []string{"p"}, Usage: "passenger as name:age:phone, repeatable", Required: true},
					&cli.StringFlag{Name: "idempotency-key", Usage: "key that makes retrying this booking safe"},
				},
				Action: book,
			},
			{
				Name:  "release",
				Usage: "free occupied seats and promote waitlisted passengers",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "seats", Usage: "number of seats to free", Required: true},
				},
				Action: release,
			},
			{
				Name:   "availability",
				Usage:  "show seat counters",
				Action: showAvailability,
			},
			{
				Name:   "history",
				Usage:  "list committed tickets with fares",
				Action: showHistory,
			},
			{
				Name:   "waitlist",
				Usage:  "list waiting passengers in promotion order",
				Action: showWaitlist,
			},
			{
				Name:  "ticket",
				Usage: "look up a ticket by passenger name or ticket id",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "passenger name"},
					&cli.StringFlag{Name: "id", Usage: "ticket id"},
				},
				Action: showTicket,
			},
		},
	}
}

func metroClient(c *cli.Context) *client.MetroClient {
	return client.NewMetroClient(c.String("server"))
}
