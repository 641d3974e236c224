package unsplash

import (
	"context"
	"sync"

	"photosearch/types"
)

// Searcher fetches one page of search results
type Searcher interface {
	SearchPhotos(ctx context.Context, query string, page, perPage int) (*types.PhotoResponse, error)
}

// Pager accumulates successive pages of a search.
// A page without results marks the search as exhausted.
type Pager struct {
	searcher Searcher
	perPage  int

	mu        sync.Mutex
	query     string
	page      int
	photos    []types.Photo
	loading   bool
	exhausted bool
}

// NewPager creates a pager fetching perPage photos at a time
func NewPager(s Searcher, perPage int) *Pager {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	return &Pager{searcher: s, perPage: perPage}
}

// Fetch starts a new search at page 1, discarding previously loaded photos
func (p *Pager) Fetch(ctx context.Context, query string) error {
	p.mu.Lock()
	if p.loading {
		p.mu.Unlock()
		return nil
	}
	p.query = query
	p.page = 0
	p.photos = nil
	p.exhausted = false
	p.mu.Unlock()

	return p.Next(ctx)
}

// Next loads the next page of the current search.
// It does nothing while another load is running or once the search is exhausted.
func (p *Pager) Next(ctx context.Context) error {
	p.mu.Lock()
	if p.loading || p.exhausted {
		p.mu.Unlock()
		return nil
	}
	p.loading = true
	query, page := p.query, p.page+1
	p.mu.Unlock()

	resp, err := p.searcher.SearchPhotos(ctx, query, page, p.perPage)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = false

	if err != nil {
		return err
	}

	// Fetch may have started a different search meanwhile
	if p.query != query {
		return nil
	}

	p.page = page
	if len(resp.Results) == 0 {
		p.exhausted = true
		return nil
	}
	p.photos = append(p.photos, resp.Results...)

	return nil
}

// Photos returns a copy of all photos loaded so far
func (p *Pager) Photos() []types.Photo {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]types.Photo, len(p.photos))
	copy(out, p.photos)
	return out
}

// PhotoAt returns the photo at index i
func (p *Pager) PhotoAt(i int) (types.Photo, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i < 0 || i >= len(p.photos) {
		return types.Photo{}, false
	}
	return p.photos[i], true
}

// Exhausted reports whether the last page has been reached
func (p *Pager) Exhausted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exhausted
}

// Query returns the current search query
func (p *Pager) Query() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.query
}

// Page returns the number of the last loaded page
func (p *Pager) Page() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}
