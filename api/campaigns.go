package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

const campaignsPath = "/api/campaigns"

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignActive    CampaignStatus = "active"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignPaused    CampaignStatus = "paused"
	CampaignExpired   CampaignStatus = "expired"
)

// Valid reports whether s is a known status. The active-campaigns endpoint
// omits the field, so the empty string counts as valid too.
func (s CampaignStatus) Valid() bool {
	switch s {
	case "", CampaignActive, CampaignScheduled, CampaignPaused, CampaignExpired:
		return true
	}
	return false
}

// CampaignImage is one slide of a campaign's rotation.
type CampaignImage struct {
	ID               string `json:"id"`
	CampaignID       string `json:"campaign_id,omitempty"`
	Filename         string `json:"filename"`
	OriginalFilename string `json:"original_filename,omitempty"`
	URL              string `json:"url"`
	Order            int    `json:"order"`
	DisplayTime      int    `json:"display_time,omitempty"`
	Title            string `json:"title,omitempty"`
	Description      string `json:"description,omitempty"`
	Active           bool   `json:"active,omitempty"`
	SizeBytes        int64  `json:"size_bytes,omitempty"`
	MimeType         string `json:"mime_type,omitempty"`
	Width            int    `json:"width,omitempty"`
	Height           int    `json:"height,omitempty"`
}

// Campaign targets signage stations hierarchically: empty targeting arrays
// mean global, otherwise regions, then branches, then individual stations.
type Campaign struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Description        string          `json:"description,omitempty"`
	Status             CampaignStatus  `json:"status,omitempty"`
	StartDate          string          `json:"start_date,omitempty"`
	EndDate            string          `json:"end_date,omitempty"`
	DefaultDisplayTime int             `json:"default_display_time"`
	Regions            []string        `json:"regions,omitempty"`
	Branches           []string        `json:"branches,omitempty"`
	Stations           []string        `json:"stations,omitempty"`
	Priority           int             `json:"priority"`
	IsDeleted          bool            `json:"is_deleted,omitempty"`
	CreatedAt          string          `json:"created_at,omitempty"`
	UpdatedAt          string          `json:"updated_at,omitempty"`
	CreatedBy          string          `json:"created_by,omitempty"`
	Images             []CampaignImage `json:"images,omitempty"`
}

func (c *Campaign) Validate() error {
	if c.ID == "" {
		return errors.New("campaign missing id")
	}
	if c.Name == "" {
		return errors.New("campaign missing name")
	}
	if !c.Status.Valid() {
		return fmt.Errorf("unknown campaign status %q", c.Status)
	}
	return nil
}

// Campaigns is the flat-array listing the campaigns endpoint returns.
type Campaigns []Campaign

func (cs Campaigns) Validate() error {
	for i := range cs {
		if err := cs[i].Validate(); err != nil {
			return fmt.Errorf("campaign %d: %w", i, err)
		}
	}
	return nil
}

// CampaignInput is the payload for creating or updating a campaign.
type CampaignInput struct {
	Name               string         `json:"name"`
	Description        string         `json:"description,omitempty"`
	Status             CampaignStatus `json:"status,omitempty"`
	StartDate          string         `json:"start_date,omitempty"`
	EndDate            string         `json:"end_date,omitempty"`
	DefaultDisplayTime int            `json:"default_display_time,omitempty"`
	Regions            []string       `json:"regions,omitempty"`
	Branches           []string       `json:"branches,omitempty"`
	Stations           []string       `json:"stations,omitempty"`
	Priority           int            `json:"priority"`
}

func (in CampaignInput) Validate() error {
	if len(in.Name) < 3 {
		return errors.New("campaign name must be at least 3 characters")
	}
	if in.Status == CampaignExpired {
		return errors.New("cannot submit an expired campaign")
	} else if !in.Status.Valid() {
		return fmt.Errorf("unknown campaign status %q", in.Status)
	}
	if in.Priority < 0 || in.Priority > 100 {
		return fmt.Errorf("priority %d out of range [0,100]", in.Priority)
	}
	return nil
}

// CampaignListParams filter and order the campaigns listing.
type CampaignListParams struct {
	Search string
	Status CampaignStatus
	Region string
	Limit  int
}

func (p CampaignListParams) values() url.Values {
	q := url.Values{}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Status != "" {
		q.Set("status", string(p.Status))
	}
	if p.Region != "" {
		q.Set("region", p.Region)
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	return q
}

// ActiveCampaigns is the playlist the server resolves for a station.
type ActiveCampaigns struct {
	StationID string    `json:"station_id,omitempty"`
	Campaigns Campaigns `json:"campaigns"`
	Total     int       `json:"total,omitempty"`
	Timestamp string    `json:"timestamp"`
}

func (a *ActiveCampaigns) Validate() error {
	if a.Timestamp == "" {
		return errors.New("active campaigns missing timestamp")
	}
	return a.Campaigns.Validate()
}

// ListCampaigns fetches campaigns matching params.
func (c *Client) ListCampaigns(ctx context.Context, params CampaignListParams) (Campaigns, error) {
	var out Campaigns
	if err := c.get(ctx, campaignsPath+"/", params.values(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCampaign fetches one campaign by ID.
func (c *Client) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	var out Campaign
	if err := c.get(ctx, campaignsPath+"/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCampaign creates a campaign and returns the server's record of it.
func (c *Client) CreateCampaign(ctx context.Context, in CampaignInput) (*Campaign, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out Campaign
	if err := c.post(ctx, campaignsPath+"/", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCampaign replaces a campaign's mutable fields.
func (c *Client) UpdateCampaign(ctx context.Context, id string, in CampaignInput) (*Campaign, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out Campaign
	if err := c.put(ctx, campaignsPath+"/"+id, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCampaign soft-deletes a campaign.
func (c *Client) DeleteCampaign(ctx context.Context, id string) error {
	return c.delete(ctx, campaignsPath+"/"+id)
}

// ActiveCampaignsForStation resolves the playlist a station should show.
func (c *Client) ActiveCampaignsForStation(ctx context.Context, stationID string) (*ActiveCampaigns, error) {
	var out ActiveCampaigns
	if err := c.get(ctx, campaignsPath+"/active/"+stationID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CampaignImages fetches a campaign's slide set.
func (c *Client) CampaignImages(ctx context.Context, campaignID string) ([]CampaignImage, error) {
	var out struct {
		Images []CampaignImage `json:"images"`
	}
	path := campaignsPath + "/" + campaignID + "/images"
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Images, nil
}

// ReorderCampaignImages sets the rotation order to the given image IDs.
func (c *Client) ReorderCampaignImages(ctx context.Context, campaignID string, imageIDs []string) error {
	path := campaignsPath + "/" + campaignID + "/images/order"
	return c.put(ctx, path, imageIDs, nil)
}
