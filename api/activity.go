package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// ActivityUser identifies who performed an activity.
type ActivityUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
}

// Activity is one entry of the portal's audit feed.
type Activity struct {
	ID          string                     `json:"id"`
	Type        string                     `json:"type"`
	Title       string                     `json:"title"`
	Description string                     `json:"description,omitempty"`
	User        *ActivityUser              `json:"user,omitempty"`
	Metadata    map[string]json.RawMessage `json:"metadata,omitempty"`
	Timestamp   string                     `json:"timestamp"`
}

func (a *Activity) Validate() error {
	if a.ID == "" {
		return errors.New("activity missing id")
	}
	if a.Timestamp == "" {
		return errors.New("activity missing timestamp")
	}
	return nil
}

// ActivityFeed is a page of the audit feed with its own pagination shape.
type ActivityFeed struct {
	Activities []Activity `json:"activities"`
	Pagination struct {
		Page       int `json:"page"`
		Total      int `json:"total"`
		TotalPages int `json:"total_pages,omitempty"`
		PerPage    int `json:"per_page,omitempty"`
	} `json:"pagination"`
}

func (f *ActivityFeed) Validate() error {
	for i := range f.Activities {
		if err := f.Activities[i].Validate(); err != nil {
			return fmt.Errorf("activity %d: %w", i, err)
		}
	}
	return nil
}

// ActivityFeed fetches recent audit entries, newest first.
func (c *Client) ActivityFeed(ctx context.Context, page, limit int) (*ActivityFeed, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out ActivityFeed
	if err := c.get(ctx, "/api/activity/feed", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
