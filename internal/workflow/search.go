package workflow

import (
	"context"
	"sync"

	"github.com/diagnosis/roomstay/internal/domain"
	"github.com/diagnosis/roomstay/pkg/logger"
)

type SearchState string

const (
	SearchIdle    SearchState = "idle"
	SearchLoading SearchState = "loading"
	SearchLoaded  SearchState = "loaded"
	SearchEmpty   SearchState = "empty"
	SearchError   SearchState = "error"
)

type SearchView struct {
	State SearchState
	Query domain.SearchQuery
	Rooms []domain.Room
	Err   error
}

// SearchFlow drives the room list. Every dispatch takes a sequence number and
// only the most recent one may write results, so a slow early page cannot
// overwrite a later one.
type SearchFlow struct {
	api RoomSearcher

	mu    sync.Mutex
	state SearchState
	query domain.SearchQuery
	rooms []domain.Room
	err   error
	seq   uint64
}

func newSearchFlow(d Deps) *SearchFlow {
	return &SearchFlow{
		api:   d.Search,
		state: SearchIdle,
		query: domain.NewSearchQuery("", 1),
	}
}

// Mount loads the first page with an empty query.
func (f *SearchFlow) Mount(ctx context.Context) error {
	return f.run(ctx, domain.NewSearchQuery("", 1))
}

// Submit starts a new search from page 1.
func (f *SearchFlow) Submit(ctx context.Context, text string) error {
	return f.run(ctx, domain.NewSearchQuery(text, 1))
}

// SetPage re-runs the current query on another page.
func (f *SearchFlow) SetPage(ctx context.Context, page int) error {
	f.mu.Lock()
	text := f.query.Text
	f.mu.Unlock()
	return f.run(ctx, domain.NewSearchQuery(text, page))
}

func (f *SearchFlow) run(ctx context.Context, q domain.SearchQuery) error {
	ctx = logger.WithFlow(ctx, "search")

	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.query = q
	f.state = SearchLoading
	f.mu.Unlock()

	res, err := f.api.Search(ctx, q)

	f.mu.Lock()
	defer f.mu.Unlock()

	if seq != f.seq {
		logger.DebugContext(ctx, "Discarding stale search result", "query", q.Text, "page", q.Page)
		return ErrSuperseded
	}

	if err != nil {
		logger.ErrorContext(ctx, "Failed to load rooms", "error", err, "query", q.Text, "page", q.Page)
		f.state = SearchError
		f.rooms = nil
		f.err = err
		return err
	}

	f.rooms = res.Items
	f.err = nil
	if len(res.Items) == 0 {
		f.state = SearchEmpty
	} else {
		f.state = SearchLoaded
	}
	return nil
}

func (f *SearchFlow) Snapshot() SearchView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return SearchView{
		State: f.state,
		Query: f.query,
		Rooms: append([]domain.Room(nil), f.rooms...),
		Err:   f.err,
	}
}
