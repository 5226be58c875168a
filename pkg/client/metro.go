package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"metro/pkg/middleware"
	"metro/pkg/model"
)

// MetroClient calls the metro HTTP API and unwraps its response envelopes.
type MetroClient struct {
	httpClient *HttpClient
}

func NewMetroClient(baseURL string) *MetroClient {
	return &MetroClient{
		httpClient: NewHttpClient(baseURL),
	}
}

func (c *MetroClient) HTTP() *HttpClient {
	return c.httpClient
}

func (c *MetroClient) Stations(ctx context.Context) ([]model.StationListing, error) {
	var out []model.StationListing
	if err := c.get(ctx, "/api/v1/stations", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MetroClient) Network(ctx context.Context) (*model.NetworkView, error) {
	var out model.NetworkView
	if err := c.get(ctx, "/api/v1/network", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *MetroClient) Route(ctx context.Context, fromCode, toCode string) (*model.Route, error) {
	q := url.Values{}
	q.Set("from", fromCode)
	q.Set("to", toCode)

	var out model.Route
	if err := c.get(ctx, "/api/v1/routes?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Book submits a booking. A non-empty idempotencyKey makes retries safe.
func (c *MetroClient) Book(ctx context.Context, req *model.BookingRequest, idempotencyKey string) (*model.BookingResult, error) {
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers[middleware.IdempotencyKeyHeader] = idempotencyKey
	}
	resp, err := c.httpClient.POSTWithHeaders(ctx, "/api/v1/bookings", req, headers)
	if err != nil {
		return nil, err
	}

	var out model.BookingResult
	if err := unwrap(resp, &out, http.StatusCreated, http.StatusAccepted); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *MetroClient) Release(ctx context.Context, seats int) (*model.ReleaseResult, error) {
	resp, err := c.httpClient.POST(ctx, "/api/v1/bookings/release", model.ReleaseRequest{Seats: seats})
	if err != nil {
		return nil, err
	}

	var out model.ReleaseResult
	if err := unwrap(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *MetroClient) Availability(ctx context.Context) (*model.Availability, error) {
	var out model.Availability
	if err := c.get(ctx, "/api/v1/bookings/availability", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *MetroClient) History(ctx context.Context) ([]model.BookingHistoryEntry, error) {
	var out []model.BookingHistoryEntry
	if err := c.get(ctx, "/api/v1/bookings", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MetroClient) Waitlist(ctx context.Context) ([]model.Passenger, error) {
	var out []model.Passenger
	if err := c.get(ctx, "/api/v1/bookings/waitlist", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MetroClient) Ticket(ctx context.Context, id string) (*model.TicketRecord, error) {
	var out model.TicketRecord
	if err := c.get(ctx, "/api/v1/bookings/id/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *MetroClient) Passenger(ctx context.Context, name string) (*model.TicketRecord, error) {
	var out model.TicketRecord
	if err := c.get(ctx, "/api/v1/bookings/passengers/"+url.PathEscape(name), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *MetroClient) TicketDetail(ctx context.Context, name string) (*model.TicketDetail, error) {
	var out model.TicketDetail
	if err := c.get(ctx, fmt.Sprintf("/api/v1/bookings/passengers/%s/ticket", url.PathEscape(name)), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *MetroClient) get(ctx context.Context, path string, target any) error {
	resp, err := c.httpClient.GET(ctx, path)
	if err != nil {
		return err
	}
	return unwrap(resp, target, http.StatusOK)
}

// unwrap decodes the "data" member of a success envelope into target.
// Any status outside accepted becomes an *APIError.
func unwrap(resp *Response, target any, accepted ...int) error {
	ok := false
	for _, status := range accepted {
		if resp.StatusCode == status {
			ok = true
			break
		}
	}
	if !ok {
		return decodeError(resp)
	}

	envelope := struct {
		Data any `json:"data"`
	}{Data: target}
	if err := resp.DecodeJSON(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
