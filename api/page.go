package api

import (
	"fmt"
	"net/url"
	"strconv"
)

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// Validate checks the envelope and each item that carries its own validation.
func (p *Page[T]) Validate() error {
	if p.Page < 1 {
		return fmt.Errorf("invalid page number %d", p.Page)
	}
	for i := range p.Items {
		if v, ok := any(&p.Items[i]).(validator); ok {
			if err := v.Validate(); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
	}
	return nil
}

// ListParams are the common query parameters of paginated listings. Zero
// values are omitted so the server applies its defaults.
type ListParams struct {
	Page     int
	PageSize int
	Search   string
}

func (p ListParams) values() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(p.PageSize))
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	return q
}
