package model

import (
	"time"
)

type Passenger struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Age         int    `json:"age" validate:"min=0,max=130"`
	Phone       string `json:"phone" validate:"required,e164"`
	Source      string `json:"source" validate:"required,station_code"`
	Destination string `json:"destination" validate:"required,station_code"`
}

// TicketRecord is a committed seat. ID is unique per booking; Name on the
// passenger is for display and lookup only.
type TicketRecord struct {
	ID          string    `json:"id"`
	Number      int       `json:"ticket_number"`
	Passenger   Passenger `json:"passenger"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	BookedAt    time.Time `json:"booked_at"`
}

type TicketDetail struct {
	Number      int    `json:"ticket_number"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// BookingRequest carries passengers travelling together. Source and
// Destination apply to passengers that leave their own empty. Seats is
// optional; when set it must match the number of passengers.
type BookingRequest struct {
	Source      string      `json:"source,omitempty" validate:"omitempty,station_code"`
	Destination string      `json:"destination,omitempty" validate:"omitempty,station_code"`
	Seats       int         `json:"seats,omitempty" validate:"min=0"`
	Passengers  []Passenger `json:"passengers" validate:"required,min=1,max=200,dive"`
}

type BookingResult struct {
	Success    bool           `json:"success"`
	Tickets    []TicketRecord `json:"tickets"`
	Waitlisted []Passenger    `json:"waitlisted"`
	Available  int            `json:"available"`
}

type ReleaseRequest struct {
	Seats int `json:"seats" validate:"required,min=1"`
}

type ReleaseResult struct {
	Promoted  bool           `json:"promoted"`
	Tickets   []TicketRecord `json:"tickets"`
	Available int            `json:"available"`
}

type Availability struct {
	Total      int `json:"total"`
	Available  int `json:"available"`
	Occupied   int `json:"occupied"`
	Committed  int `json:"committed"`
	Waitlisted int `json:"waitlisted"`
}

// BookingHistoryEntry is a committed ticket with the fare of its route.
type BookingHistoryEntry struct {
	TicketRecord
	Fare int `json:"fare"`
}
