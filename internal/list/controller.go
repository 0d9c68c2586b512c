// Package list owns the query state behind the paginated train table: search
// text, filters, sort field and direction, page index and page size. Every
// mutation issues a fresh fetch; responses are sequence-checked so only the
// most recently issued request may update the displayed page.
package list

import (
	"context"
	"fmt"
	"sync"

	"railboard/internal/model"
)

// DefaultLimit is the page size used when none is configured.
const DefaultLimit = 10

// DefaultSortField is the initial sort column.
const DefaultSortField = "departure_time"

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Phase is the controller's fetch state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
	PhaseErrored
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseErrored:
		return "errored"
	}
	return "unknown"
}

// Query describes what page of records the user wants to see.
type Query struct {
	Search    string
	Status    model.TrainStatus
	Type      model.TrainType
	SortField string
	SortDir   Direction
	Page      int
	Limit     int
}

// Snapshot is the controller's observable state: the last applied query and
// the page it produced. After a failed fetch the previous rows and total are
// retained and Err records the failure.
type Snapshot struct {
	Phase  Phase
	Query  Query
	Trains []model.Train
	Total  int
	Err    error
}

// TotalPages returns the number of navigable pages, never less than one.
func (s Snapshot) TotalPages() int {
	return totalPages(s.Total, s.Query.Limit)
}

// HasPrev reports whether a previous page exists.
func (s Snapshot) HasPrev() bool { return s.Query.Page > 1 }

// HasNext reports whether a next page exists.
func (s Snapshot) HasNext() bool { return s.Query.Page < s.TotalPages() }

// Fetch retrieves one page of trains plus the pre-pagination total.
type Fetch func(ctx context.Context, q Query) ([]model.Train, int, error)

// Controller drives the paginated list. All mutators are safe for concurrent
// use; when calls overlap, the last issued request wins and stale responses
// are discarded.
type Controller struct {
	fetch Fetch

	mu   sync.Mutex
	q    Query
	snap Snapshot
	seq  uint64 // id of the most recently issued fetch
}

// Option configures a new Controller.
type Option func(*Query)

// WithLimit sets the initial page size; values below one keep the default.
func WithLimit(limit int) Option {
	return func(q *Query) {
		if limit > 0 {
			q.Limit = limit
		}
	}
}

// WithSort sets the initial sort column and direction.
func WithSort(field string, dir Direction) Option {
	return func(q *Query) {
		if model.Sortable(field) {
			q.SortField = field
			q.SortDir = dir
		}
	}
}

// New creates a controller in the idle phase with default sorting and paging.
func New(fetch Fetch, opts ...Option) *Controller {
	q := Query{
		SortField: DefaultSortField,
		SortDir:   Asc,
		Page:      1,
		Limit:     DefaultLimit,
	}
	for _, opt := range opts {
		opt(&q)
	}
	return &Controller{
		fetch: fetch,
		q:     q,
		snap:  Snapshot{Phase: PhaseIdle, Query: q},
	}
}

// Snapshot returns the current observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Refresh re-fetches the current query.
func (c *Controller) Refresh(ctx context.Context) (Snapshot, error) {
	return c.mutate(ctx, func(q *Query) bool { return true })
}

// SetSearch changes the free-text filter and resets to the first page.
func (c *Controller) SetSearch(ctx context.Context, search string) (Snapshot, error) {
	return c.mutate(ctx, func(q *Query) bool {
		if q.Search == search {
			return false
		}
		q.Search = search
		q.Page = 1
		return true
	})
}

// FilterStatus changes the status filter ("" clears it) and resets to the
// first page.
func (c *Controller) FilterStatus(ctx context.Context, status model.TrainStatus) (Snapshot, error) {
	return c.mutate(ctx, func(q *Query) bool {
		if q.Status == status {
			return false
		}
		q.Status = status
		q.Page = 1
		return true
	})
}

// FilterType changes the type filter ("" clears it) and resets to the first
// page.
func (c *Controller) FilterType(ctx context.Context, trainType model.TrainType) (Snapshot, error) {
	return c.mutate(ctx, func(q *Query) bool {
		if q.Type == trainType {
			return false
		}
		q.Type = trainType
		q.Page = 1
		return true
	})
}

// Filters applies the search box and both selects in one step, issuing a
// single fetch. Any change resets to the first page.
func (c *Controller) Filters(ctx context.Context, search string, status model.TrainStatus, trainType model.TrainType) (Snapshot, error) {
	return c.mutate(ctx, func(q *Query) bool {
		if q.Search == search && q.Status == status && q.Type == trainType {
			return false
		}
		q.Search = search
		q.Status = status
		q.Type = trainType
		q.Page = 1
		return true
	})
}

// Sort applies a sort-header click: the active field flips direction, a new
// field becomes primary ascending. Either way the page resets to 1.
func (c *Controller) Sort(ctx context.Context, field string) (Snapshot, error) {
	if !model.Sortable(field) {
		return c.Snapshot(), fmt.Errorf("field %q is not sortable", field)
	}
	return c.mutate(ctx, func(q *Query) bool {
		if q.SortField == field {
			if q.SortDir == Asc {
				q.SortDir = Desc
			} else {
				q.SortDir = Asc
			}
		} else {
			q.SortField = field
			q.SortDir = Asc
		}
		q.Page = 1
		return true
	})
}

// SetLimit changes the page size and resets to the first page.
func (c *Controller) SetLimit(ctx context.Context, limit int) (Snapshot, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return c.mutate(ctx, func(q *Query) bool {
		if q.Limit == limit {
			return false
		}
		q.Limit = limit
		q.Page = 1
		return true
	})
}

// Page navigates to page p, clamped to [1, TotalPages]. A request that lands
// on the current page is a no-op and issues no fetch.
func (c *Controller) Page(ctx context.Context, p int) (Snapshot, error) {
	return c.mutate(ctx, func(q *Query) bool {
		target := clampPage(p, c.snap.Total, q.Limit, c.snap.Phase)
		if target == q.Page {
			return false
		}
		q.Page = target
		return true
	})
}

// NextPage advances one page if one exists.
func (c *Controller) NextPage(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	target := c.q.Page + 1
	c.mu.Unlock()
	return c.Page(ctx, target)
}

// PrevPage retreats one page if one exists.
func (c *Controller) PrevPage(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	target := c.q.Page - 1
	c.mu.Unlock()
	return c.Page(ctx, target)
}

// mutate applies a query change under the lock and, when it reports a real
// change, issues a sequenced fetch. Before the first fetch even a no-change
// mutation fetches: an idle snapshot holds nothing worth returning.
func (c *Controller) mutate(ctx context.Context, apply func(q *Query) bool) (Snapshot, error) {
	c.mu.Lock()
	if !apply(&c.q) && c.snap.Phase != PhaseIdle {
		snap := c.snap
		c.mu.Unlock()
		return snap, nil
	}
	c.seq++
	seq := c.seq
	q := c.q
	c.snap.Phase = PhaseLoading
	c.mu.Unlock()

	return c.resolve(ctx, seq, q)
}

// resolve runs the fetch and applies its result unless a newer request has
// been issued in the meantime. An empty page past the end retreats to the
// last non-empty page instead of rendering blank.
func (c *Controller) resolve(ctx context.Context, seq uint64, q Query) (Snapshot, error) {
	for {
		trains, total, err := c.fetch(ctx, q)

		c.mu.Lock()
		if seq != c.seq {
			// A newer request was issued while this one was in flight.
			snap := c.snap
			c.mu.Unlock()
			return snap, nil
		}
		if err != nil {
			c.snap.Phase = PhaseErrored
			c.snap.Query = q
			c.snap.Err = err
			snap := c.snap
			c.mu.Unlock()
			return snap, err
		}
		if last := totalPages(total, q.Limit); len(trains) == 0 && total > 0 && q.Page > last {
			c.q.Page = last
			c.seq++
			seq = c.seq
			q = c.q
			c.mu.Unlock()
			continue
		}
		c.snap = Snapshot{Phase: PhaseReady, Query: q, Trains: trains, Total: total}
		snap := c.snap
		c.mu.Unlock()
		return snap, nil
	}
}

// clampPage bounds p to the navigable range. Before the first successful
// fetch the upper bound is unknown, so only the lower bound applies.
func clampPage(p, total, limit int, phase Phase) int {
	if p < 1 {
		return 1
	}
	if phase == PhaseIdle || phase == PhaseLoading {
		return p
	}
	if last := totalPages(total, limit); p > last {
		return last
	}
	return p
}

func totalPages(total, limit int) int {
	if limit <= 0 {
		limit = DefaultLimit
	}
	pages := (total + limit - 1) / limit
	if pages < 1 {
		return 1
	}
	return pages
}
