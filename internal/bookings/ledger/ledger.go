// Package ledger keeps the seat reservations of one service run.
//
// A Ledger owns a fixed number of seats. Booking commits passengers while
// seats remain and queues the rest on a FIFO waitlist of individual
// passengers. Releasing seats promotes waitlisted passengers oldest first.
//
// Committed tickets form an append-only history in booking order, indexed
// by ticket ID and by passenger name. Several passengers may share a name;
// name lookups return the earliest ticket.
//
// All methods are safe for concurrent use. The lock keeps
// occupied + available == total at every observable point.
package ledger

import (
	"fmt"
	"sync"
	"time"

	bookingserrors "metro/internal/bookings/errors"
	"metro/pkg/model"

	"github.com/google/uuid"
)

// Result of Book. Available is the seat count right after this booking,
// read under the same lock.
type Result struct {
	Success   bool
	Committed []model.TicketRecord
	Overflow  []model.Passenger
	Available int
}

// Release is the outcome of ReleaseCapacity.
type Release struct {
	Promoted  bool
	Tickets   []model.TicketRecord
	Available int
}

type Stats struct {
	Total      int
	Available  int
	Occupied   int
	Committed  int
	Waitlisted int
}

type Ledger struct {
	mu sync.Mutex

	total     int
	available int

	records []model.TicketRecord
	byName  map[string][]int
	byID    map[string]int

	waitlist []model.Passenger

	nextNumber int
	newID      func() string
	now        func() time.Time
}

type Option func(*Ledger)

// WithIDGenerator replaces the UUID generator used for ticket IDs.
func WithIDGenerator(fn func() string) Option {
	return func(l *Ledger) {
		l.newID = fn
	}
}

func WithClock(fn func() time.Time) Option {
	return func(l *Ledger) {
		l.now = fn
	}
}

func New(total int, opts ...Option) (*Ledger, error) {
	if total < 0 {
		return nil, fmt.Errorf("%w: %d", bookingserrors.ErrInvalidCapacity, total)
	}
	l := &Ledger{
		total:      total,
		available:  total,
		byName:     make(map[string][]int),
		byID:       make(map[string]int),
		nextNumber: 1,
		newID:      uuid.NewString,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Book commits as many passengers as there are free seats, in list order.
// The remainder is appended to the waitlist and returned as Overflow;
// Success reports whether nobody overflowed.
func (l *Ledger) Book(passengers []model.Passenger) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	seated := min(len(passengers), l.available)
	committed := make([]model.TicketRecord, 0, seated)
	for _, p := range passengers[:seated] {
		committed = append(committed, l.commit(p))
	}
	l.available -= seated

	overflow := make([]model.Passenger, 0, len(passengers)-seated)
	overflow = append(overflow, passengers[seated:]...)
	l.waitlist = append(l.waitlist, overflow...)

	return Result{
		Success:   len(overflow) == 0,
		Committed: committed,
		Overflow:  overflow,
		Available: l.available,
	}
}

// ReleaseCapacity frees n occupied seats and fills them from the waitlist.
// Seats left over after the waitlist empties stay available. It reports
// whether anyone was promoted.
func (l *Ledger) ReleaseCapacity(n int) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	occupied := l.total - l.available
	if n <= 0 || n > occupied {
		return Release{}, fmt.Errorf("%w: cannot release %d of %d occupied seats", bookingserrors.ErrInvalidSeatCount, n, occupied)
	}
	l.available += n

	promote := min(n, len(l.waitlist))
	promoted := make([]model.TicketRecord, 0, promote)
	for _, p := range l.waitlist[:promote] {
		promoted = append(promoted, l.commit(p))
	}
	l.waitlist = l.waitlist[promote:]
	l.available -= promote

	return Release{
		Promoted:  promote > 0,
		Tickets:   promoted,
		Available: l.available,
	}, nil
}

func (l *Ledger) CheckAvailability() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.available
}

// FindPassenger returns the earliest ticket booked under name.
func (l *Ledger) FindPassenger(name string) (model.TicketRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx, ok := l.byName[name]
	if !ok {
		return model.TicketRecord{}, fmt.Errorf("%w: %q", bookingserrors.ErrNotFound, name)
	}
	return l.records[idx[0]], nil
}

func (l *Ledger) TicketDetail(name string) (model.TicketDetail, error) {
	record, err := l.FindPassenger(name)
	if err != nil {
		return model.TicketDetail{}, err
	}
	return model.TicketDetail{
		Number:      record.Number,
		Source:      record.Source,
		Destination: record.Destination,
	}, nil
}

func (l *Ledger) FindByID(id string) (model.TicketRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx, ok := l.byID[id]
	if !ok {
		return model.TicketRecord{}, fmt.Errorf("%w: ticket %q", bookingserrors.ErrNotFound, id)
	}
	return l.records[idx], nil
}

// Records returns committed tickets in booking order.
func (l *Ledger) Records() []model.TicketRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.TicketRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Waitlist returns waiting passengers, next to be promoted first.
func (l *Ledger) Waitlist() []model.Passenger {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.Passenger, len(l.waitlist))
	copy(out, l.waitlist)
	return out
}

func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Stats{
		Total:      l.total,
		Available:  l.available,
		Occupied:   l.total - l.available,
		Committed:  len(l.records),
		Waitlisted: len(l.waitlist),
	}
}

// commit appends a ticket for p. Callers hold l.mu and adjust available.
func (l *Ledger) commit(p model.Passenger) model.TicketRecord {
	record := model.TicketRecord{
		ID:          l.newID(),
		Number:      l.nextNumber,
		Passenger:   p,
		Source:      p.Source,
		Destination: p.Destination,
		BookedAt:    l.now(),
	}
	l.nextNumber++

	l.byID[record.ID] = len(l.records)
	l.byName[p.Name] = append(l.byName[p.Name], len(l.records))
	l.records = append(l.records, record)
	return record
}
