package service

import (
	"context"
	"errors"
	"fmt"

	bookingserrors "metro/internal/bookings/errors"
	"metro/internal/bookings/events"
	"metro/internal/bookings/ledger"
	"metro/internal/bookings/validator"
	routingservice "metro/internal/routing/service"
	"metro/pkg/config"
	apperrors "metro/pkg/errors"
	"metro/pkg/model"
	"metro/pkg/sanitizer"
)

type BookingService interface {
	Book(ctx context.Context, req *model.BookingRequest) (*model.BookingResult, error)
	ReleaseCapacity(ctx context.Context, req *model.ReleaseRequest) (*model.ReleaseResult, error)
	Availability(ctx context.Context) (*model.Availability, error)
	FindPassenger(ctx context.Context, name string) (*model.TicketRecord, error)
	TicketDetail(ctx context.Context, name string) (*model.TicketDetail, error)
	GetByID(ctx context.Context, id string) (*model.TicketRecord, error)
	History(ctx context.Context) ([]model.BookingHistoryEntry, error)
	Waitlist(ctx context.Context) ([]model.Passenger, error)
}

type bookingService struct {
	ledger    *ledger.Ledger
	routes    routingservice.RoutingService
	validator *validator.BookingValidator
	publisher events.Publisher
	cfg       *config.Config
}

func NewBookingService(
	ledger *ledger.Ledger,
	routes routingservice.RoutingService,
	validator *validator.BookingValidator,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		ledger:    ledger,
		routes:    routes,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *bookingService) Book(ctx context.Context, req *model.BookingRequest) (*model.BookingResult, error) {
	s.applyDefaults(req)
	s.sanitize(req)
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}
	if err := s.verifyRoutes(ctx, req.Passengers); err != nil {
		return nil, err
	}

	log := s.cfg.Log.FromContext(ctx)
	result := s.ledger.Book(req.Passengers)
	available := result.Available

	if len(result.Committed) > 0 {
		log.Info("Booking committed",
			"tickets", len(result.Committed),
			"first_ticket", result.Committed[0].Number,
			"available", available,
		)
	}
	if len(result.Overflow) > 0 {
		log.Info("Passengers waitlisted",
			"waitlisted", len(result.Overflow),
			"available", available,
		)
	}

	if err := s.publisher.Committed(ctx, result.Committed, available); err != nil {
		log.Warn("Failed to publish booking event", "event", events.EventBookingCommitted, "error", err)
	}
	if err := s.publisher.Waitlisted(ctx, result.Overflow, available); err != nil {
		log.Warn("Failed to publish booking event", "event", events.EventBookingWaitlisted, "error", err)
	}

	return &model.BookingResult{
		Success:    result.Success,
		Tickets:    result.Committed,
		Waitlisted: result.Overflow,
		Available:  available,
	}, nil
}

func (s *bookingService) ReleaseCapacity(ctx context.Context, req *model.ReleaseRequest) (*model.ReleaseResult, error) {
	if err := s.validator.ValidateRelease(req); err != nil {
		s.cfg.Log.FromContext(ctx).Warn("Release validation failed", "error", err)
		return nil, validationError("Invalid release input", err)
	}

	log := s.cfg.Log.FromContext(ctx)
	released, err := s.ledger.ReleaseCapacity(req.Seats)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrInvalidSeatCount) {
			stats := s.ledger.Stats()
			return nil, apperrors.Validation(
				fmt.Sprintf("Cannot release %d seats", req.Seats),
				map[string]any{"seats": req.Seats, "occupied": stats.Occupied},
			)
		}
		return nil, apperrors.Internal("Failed to release capacity", err)
	}
	promoted, tickets, available := released.Promoted, released.Tickets, released.Available

	log.Info("Capacity released",
		"seats", req.Seats,
		"promoted", len(tickets),
		"available", available,
	)
	if promoted {
		log.Info("Waitlist promoted", "tickets", len(tickets))
		if err := s.publisher.Promoted(ctx, tickets, available); err != nil {
			log.Warn("Failed to publish booking event", "event", events.EventBookingPromoted, "error", err)
		}
	}

	return &model.ReleaseResult{
		Promoted:  promoted,
		Tickets:   tickets,
		Available: available,
	}, nil
}

func (s *bookingService) Availability(ctx context.Context) (*model.Availability, error) {
	stats := s.ledger.Stats()
	return &model.Availability{
		Total:      stats.Total,
		Available:  stats.Available,
		Occupied:   stats.Occupied,
		Committed:  stats.Committed,
		Waitlisted: stats.Waitlisted,
	}, nil
}

func (s *bookingService) FindPassenger(ctx context.Context, name string) (*model.TicketRecord, error) {
	name = sanitizer.SanitizeName(name)
	if name == "" {
		return nil, apperrors.InvalidInput("Passenger name cannot be empty")
	}

	record, err := s.ledger.FindPassenger(name)
	if err != nil {
		return nil, s.mapLookupError(err, "Passenger", name)
	}
	return &record, nil
}

func (s *bookingService) TicketDetail(ctx context.Context, name string) (*model.TicketDetail, error) {
	name = sanitizer.SanitizeName(name)
	if name == "" {
		return nil, apperrors.InvalidInput("Passenger name cannot be empty")
	}

	detail, err := s.ledger.TicketDetail(name)
	if err != nil {
		return nil, s.mapLookupError(err, "Passenger", name)
	}
	return &detail, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.TicketRecord, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Ticket ID cannot be empty")
	}

	record, err := s.ledger.FindByID(id)
	if err != nil {
		return nil, s.mapLookupError(err, "Ticket", id)
	}
	return &record, nil
}

// History lists committed tickets in booking order with the fare of each
// ticket's route. Fares are computed once per station pair.
func (s *bookingService) History(ctx context.Context) ([]model.BookingHistoryEntry, error) {
	records := s.ledger.Records()
	fares := make(map[[2]string]int)

	history := make([]model.BookingHistoryEntry, 0, len(records))
	for _, r := range records {
		pair := [2]string{r.Source, r.Destination}
		amount, ok := fares[pair]
		if !ok {
			var err error
			amount, err = s.routes.Fare(ctx, r.Source, r.Destination)
			if err != nil {
				s.cfg.Log.FromContext(ctx).Error("Failed to price booked ticket",
					"ticket_id", r.ID,
					"source", r.Source,
					"destination", r.Destination,
					"error", err,
				)
				return nil, apperrors.Internal("Failed to compute booking fares", err)
			}
			fares[pair] = amount
		}
		history = append(history, model.BookingHistoryEntry{TicketRecord: r, Fare: amount})
	}
	return history, nil
}

func (s *bookingService) Waitlist(ctx context.Context) ([]model.Passenger, error) {
	return s.ledger.Waitlist(), nil
}

// applyDefaults copies the request's stations onto passengers that leave
// theirs empty.
func (s *bookingService) applyDefaults(req *model.BookingRequest) {
	for i := range req.Passengers {
		p := &req.Passengers[i]
		if p.Source == "" {
			p.Source = req.Source
		}
		if p.Destination == "" {
			p.Destination = req.Destination
		}
	}
}

func (s *bookingService) sanitize(req *model.BookingRequest) {
	req.Source = sanitizer.SanitizeStationCode(req.Source)
	req.Destination = sanitizer.SanitizeStationCode(req.Destination)
	for i := range req.Passengers {
		p := &req.Passengers[i]
		p.Name = sanitizer.SanitizeName(p.Name)
		p.Phone = sanitizer.SanitizePhone(p.Phone)
		p.Source = sanitizer.SanitizeStationCode(p.Source)
		p.Destination = sanitizer.SanitizeStationCode(p.Destination)
	}
}

func (s *bookingService) validate(ctx context.Context, req *model.BookingRequest) error {
	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.FromContext(ctx).Warn("Booking validation failed",
			"passengers", len(req.Passengers),
			"error", err,
		)
		return validationError("Invalid booking input", err)
	}
	return nil
}

func validationError(message string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, map[string]any{"errors": verrs})
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}

// verifyRoutes rejects the whole request if any passenger's trip is not
// served by the network.
func (s *bookingService) verifyRoutes(ctx context.Context, passengers []model.Passenger) error {
	checked := make(map[[2]string]struct{})
	for _, p := range passengers {
		pair := [2]string{p.Source, p.Destination}
		if _, ok := checked[pair]; ok {
			continue
		}
		if _, err := s.routes.Route(ctx, p.Source, p.Destination); err != nil {
			return err
		}
		checked[pair] = struct{}{}
	}
	return nil
}

func (s *bookingService) mapLookupError(err error, resource, key string) error {
	if errors.Is(err, bookingserrors.ErrNotFound) {
		return apperrors.NotFoundWithID(resource, key)
	}
	return apperrors.Internal(fmt.Sprintf("Failed to retrieve %s", resource), err)
}
