package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/diagnosis/roomstay/internal/domain"
	"github.com/diagnosis/roomstay/internal/registry"
	"github.com/google/go-querystring/query"
)

type ReservationService struct {
	c *Client
}

// POST /reservations
func (s *ReservationService) Create(ctx context.Context, draft domain.ReservationDraft) (*domain.Reservation, error) {
	raw, err := s.c.Request(ctx, registry.Reservations, "/reservations", http.MethodPost, draft, nil)
	if err != nil {
		return nil, err
	}
	if err := LogicalErrorFrom(raw); err != nil {
		return nil, err
	}

	out := &domain.Reservation{RoomID: draft.RoomID, CheckIn: draft.CheckIn, CheckOut: draft.CheckOut}
	if isNull(raw) {
		return out, nil
	}
	if err := decodeInto(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GET /reservations/my
func (s *ReservationService) Mine(ctx context.Context) ([]domain.Reservation, error) {
	raw, err := s.c.Request(ctx, registry.Reservations, "/reservations/my", http.MethodGet, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeReservations(raw)
}

// DELETE /reservations/:id
func (s *ReservationService) Delete(ctx context.Context, id domain.ID) error {
	raw, err := s.c.Request(ctx, registry.Reservations, "/reservations/"+url.PathEscape(id.String()), http.MethodDelete, nil, nil)
	if err != nil {
		return err
	}
	return LogicalErrorFrom(raw)
}

// GET /reservations?hotel_id=&user_id=&status= (admin)
func (s *ReservationService) List(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	values, err := query.Values(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reservation filter: %w", err)
	}
	path := "/reservations"
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}

	raw, err := s.c.Request(ctx, registry.Reservations, path, http.MethodGet, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeReservations(raw)
}

// PUT /reservations/:id (admin)
func (s *ReservationService) Update(ctx context.Context, id domain.ID, patch domain.ReservationPatch) (*domain.Reservation, error) {
	raw, err := s.c.Request(ctx, registry.Reservations, "/reservations/"+url.PathEscape(id.String()), http.MethodPut, patch, nil)
	if err != nil {
		return nil, err
	}
	if err := LogicalErrorFrom(raw); err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, ErrNotFound
	}

	var out domain.Reservation
	if err := decodeInto(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func decodeReservations(raw json.RawMessage) ([]domain.Reservation, error) {
	if isNull(raw) {
		return []domain.Reservation{}, nil
	}
	if err := LogicalErrorFrom(raw); err != nil {
		return nil, err
	}
	if bytes.TrimSpace(raw)[0] != '[' {
		return nil, fmt.Errorf("%w: expected a reservation list", ErrUnexpectedResponse)
	}

	out := []domain.Reservation{}
	if err := decodeInto(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
