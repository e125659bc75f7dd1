package api

import (
	"context"
	"errors"
)

const stationsPath = "/api/stations"

// Station is a signage display endpoint within a branch.
type Station struct {
	ID        string  `json:"id"`
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	BranchID  string  `json:"branch_id,omitempty"`
	Address   string  `json:"address,omitempty"`
	IsActive  bool    `json:"is_active,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`
	Branch    *Branch `json:"branch,omitempty"`
}

func (s *Station) Validate() error {
	if s.ID == "" {
		return errors.New("station missing id")
	}
	if s.Code == "" {
		return errors.New("station missing code")
	}
	if s.Name == "" {
		return errors.New("station missing name")
	}
	return nil
}

// StationInput is the payload for creating or updating a station.
type StationInput struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	BranchID string `json:"branch_id"`
	Address  string `json:"address,omitempty"`
	IsActive bool   `json:"is_active"`
}

func (in StationInput) Validate() error {
	if in.Code == "" {
		return errors.New("station code is required")
	}
	if in.Name == "" {
		return errors.New("station name is required")
	}
	if in.BranchID == "" {
		return errors.New("station branch_id is required")
	}
	return nil
}

// ListStations fetches a page of stations.
func (c *Client) ListStations(ctx context.Context, params ListParams) (*Page[Station], error) {
	var out Page[Station]
	if err := c.get(ctx, stationsPath, params.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStation fetches one station by ID.
func (c *Client) GetStation(ctx context.Context, id string) (*Station, error) {
	var out Station
	if err := c.get(ctx, stationsPath+"/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StationsByBranch fetches all stations under one branch.
func (c *Client) StationsByBranch(ctx context.Context, branchID string) ([]Station, error) {
	var out []Station
	path := branchesPath + "/" + branchID + "/stations"
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateStation creates a station.
func (c *Client) CreateStation(ctx context.Context, in StationInput) (*Station, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out Station
	if err := c.post(ctx, stationsPath, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStation replaces a station's mutable fields.
func (c *Client) UpdateStation(ctx context.Context, id string, in StationInput) (*Station, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out Station
	if err := c.put(ctx, stationsPath+"/"+id, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteStation removes a station.
func (c *Client) DeleteStation(ctx context.Context, id string) error {
	return c.delete(ctx, stationsPath+"/"+id)
}
