package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/diagnosis/roomstay/internal/domain"
	"github.com/diagnosis/roomstay/internal/registry"
)

type HotelService struct {
	c *Client
}

// GET /hotels
func (s *HotelService) List(ctx context.Context) ([]domain.Room, error) {
	raw, err := s.c.Request(ctx, registry.Hotels, "/hotels", http.MethodGet, nil, nil)
	if err != nil {
		return nil, err
	}
	return NormalizeRooms(raw)
}

// GET /hotels/:id
func (s *HotelService) Get(ctx context.Context, id domain.ID) (*domain.Room, error) {
	raw, err := s.c.Request(ctx, registry.Hotels, "/hotels/"+url.PathEscape(id.String()), http.MethodGet, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeRoom(raw)
}

// POST /hotels
func (s *HotelService) Create(ctx context.Context, room domain.Room) (*domain.Room, error) {
	raw, err := s.c.Request(ctx, registry.Hotels, "/hotels", http.MethodPost, room, nil)
	if err != nil {
		return nil, err
	}
	return decodeRoom(raw)
}

// PUT /hotels/:id
func (s *HotelService) Update(ctx context.Context, id domain.ID, room domain.Room) (*domain.Room, error) {
	raw, err := s.c.Request(ctx, registry.Hotels, "/hotels/"+url.PathEscape(id.String()), http.MethodPut, room, nil)
	if err != nil {
		return nil, err
	}
	return decodeRoom(raw)
}

// DELETE /hotels/:id
func (s *HotelService) Delete(ctx context.Context, id domain.ID) error {
	raw, err := s.c.Request(ctx, registry.Hotels, "/hotels/"+url.PathEscape(id.String()), http.MethodDelete, nil, nil)
	if err != nil {
		return err
	}
	return LogicalErrorFrom(raw)
}

func decodeRoom(raw []byte) (*domain.Room, error) {
	if isNull(raw) {
		return nil, ErrNotFound
	}
	if err := LogicalErrorFrom(raw); err != nil {
		return nil, err
	}
	var room domain.Room
	if err := decodeInto(raw, &room); err != nil {
		return nil, err
	}
	if room.ID == "" {
		return nil, ErrNotFound
	}
	return &room, nil
}
