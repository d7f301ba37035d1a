// Package feed implements the paginated review feed controller.
package feed

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/revuly/revuly-go/internal/domain"
	"github.com/revuly/revuly-go/internal/services"
)

// DefaultPageSize matches the review grid of the dashboard.
const DefaultPageSize = 18

// Fetcher is the slice of the review service the controller needs.
type Fetcher interface {
	FetchAllReviews(ctx context.Context, businessSlug string, page, limit int) (*services.ReviewsResult, error)
}

// Controller fetches a business's reviews page by page. The total count is
// tracked independently of the per-page payload so the pager stays stable
// while a page is in flight.
//
// Overlapping loads are resolved with a generation counter: a response that
// arrives after a newer request was issued is discarded entirely.
type Controller struct {
	svc      Fetcher
	slug     string
	pageSize int
	log      *logrus.Logger

	mu      sync.Mutex
	items   []domain.Review
	page    int
	total   int
	loading bool
	gen     uint64
}

// New creates a Controller for the business identified by slug.
func New(svc Fetcher, slug string, pageSize int, log *logrus.Logger) *Controller {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Controller{
		svc:      svc,
		slug:     slug,
		pageSize: pageSize,
		log:      log,
	}
}

// Load fetches the first page. Call once at mount.
func (c *Controller) Load(ctx context.Context) error {
	return c.LoadPage(ctx, 1)
}

// LoadPage fetches the given page and replaces the visible items on
// success. On failure the prior state is left untouched. Loading is cleared
// in every case, unless a newer request took ownership of the state in the
// meantime.
func (c *Controller) LoadPage(ctx context.Context, page int) error {
	c.mu.Lock()
	c.loading = true
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	res, err := c.svc.FetchAllReviews(ctx, c.slug, page, c.pageSize)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		// Stale response; a newer request owns the state now.
		return nil
	}
	c.loading = false

	if err != nil {
		c.log.Errorf("feed: load page %d: %v", page, err)
		return err
	}
	if res.Success && res.Page != nil {
		c.items = res.Page.Reviews
		c.page = page
		if res.Page.Total >= 0 {
			c.total = res.Page.Total
		}
	}
	return nil
}

// ChangePage loads the requested page, ignoring out-of-range requests.
func (c *Controller) ChangePage(ctx context.Context, page int) error {
	if page < 1 || page > c.TotalPages() {
		return nil
	}
	return c.LoadPage(ctx, page)
}

// Items returns the current page's reviews.
func (c *Controller) Items() []domain.Review {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Review(nil), c.items...)
}

// Page returns the current page number, 0 before the first load.
func (c *Controller) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Total returns the last observed total review count.
func (c *Controller) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Loading reports whether a fetch is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// PageSize returns the configured page size.
func (c *Controller) PageSize() int {
	return c.pageSize
}

// TotalPages derives the page count from the tracked total.
func (c *Controller) TotalPages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return (c.total + c.pageSize - 1) / c.pageSize
}

// PageNumbers returns the windowed pager entries for the current state.
func (c *Controller) PageNumbers() []PageItem {
	return PageNumbers(c.Page(), c.TotalPages())
}
