package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/diagnosis/roomstay/internal/domain"
	"github.com/diagnosis/roomstay/internal/registry"
)

type SearchService struct {
	c *Client
}

// SearchResult is the one shape consumers see, whatever the server sent.
type SearchResult struct {
	Items []domain.Room
}

// GET /search?q=<text>&page=<n>
func (s *SearchService) Search(ctx context.Context, q domain.SearchQuery) (SearchResult, error) {
	q = domain.NewSearchQuery(q.Text, q.Page)
	path := "/search?q=" + url.QueryEscape(q.Text) + "&page=" + strconv.Itoa(q.Page)

	raw, err := s.c.Request(ctx, registry.Search, path, http.MethodGet, nil, nil)
	if err != nil {
		return SearchResult{}, err
	}

	items, err := NormalizeRooms(raw)
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{Items: items}, nil
}

// NormalizeRooms accepts a bare array, {results: [...]} or {rooms: [...]}.
// results wins over rooms when both are present. null, at the top level or
// under either key, yields no rooms.
func NormalizeRooms(raw json.RawMessage) ([]domain.Room, error) {
	trimmed := bytes.TrimSpace(raw)
	if isNull(trimmed) {
		return []domain.Room{}, nil
	}

	switch trimmed[0] {
	case '[':
		return decodeRooms(trimmed)
	case '{':
		var envelope map[string]json.RawMessage
		if err := decodeInto(trimmed, &envelope); err != nil {
			return nil, err
		}
		results, hasResults := envelope["results"]
		rooms, hasRooms := envelope["rooms"]
		if hasResults && !isNull(results) {
			return decodeRooms(results)
		}
		if hasRooms && !isNull(rooms) {
			return decodeRooms(rooms)
		}
		if err := LogicalErrorFrom(trimmed); err != nil {
			return nil, err
		}
		// A nil slice on the server side arrives as {"results": null}.
		if hasResults || hasRooms {
			return []domain.Room{}, nil
		}
	}
	return nil, fmt.Errorf("%w: expected a room list", ErrUnexpectedResponse)
}

func decodeRooms(raw json.RawMessage) ([]domain.Room, error) {
	rooms := []domain.Room{}
	if err := decodeInto(raw, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}
