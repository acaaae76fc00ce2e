package bulk

import (
	"context"

	"github.com/angelmondragon/cartlimits-backend/pkg/shopify"
)

// CustomerLister enumerates customer ids one page at a time.
type CustomerLister interface {
	ListCustomerIDs(ctx context.Context, first int, after string) (*shopify.CustomerIDPage, error)
}

// Pager walks every customer id in the shop. It can be resumed from Cursor.
type Pager struct {
	lister   CustomerLister
	pageSize int
	cursor   string
	done     bool
}

// NewPager starts enumeration after cursor; an empty cursor starts from the first customer.
func NewPager(lister CustomerLister, pageSize int, cursor string) *Pager {
	if pageSize <= 0 || pageSize > 250 {
		pageSize = 250
	}
	return &Pager{lister: lister, pageSize: pageSize, cursor: cursor}
}

// Next returns the next page of ids. ok is false once the sequence is exhausted.
func (p *Pager) Next(ctx context.Context) (ids []string, ok bool, err error) {
	if p.done {
		return nil, false, nil
	}
	page, err := p.lister.ListCustomerIDs(ctx, p.pageSize, p.cursor)
	if err != nil {
		return nil, false, err
	}
	info := page.PageInfo
	if !info.HasNextPage || info.EndCursor == "" || info.EndCursor == p.cursor {
		p.done = true
	} else {
		p.cursor = info.EndCursor
	}
	if len(page.IDs) == 0 && p.done {
		return nil, false, nil
	}
	return page.IDs, true, nil
}

// Cursor is where a new Pager would resume.
func (p *Pager) Cursor() string {
	return p.cursor
}
