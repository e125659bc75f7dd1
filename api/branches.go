package api

import (
	"context"
	"errors"
)

const branchesPath = "/api/branches"

// Branch is a physical site grouping signage stations.
type Branch struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	Name          string `json:"name"`
	City          string `json:"city,omitempty"`
	State         string `json:"state"`
	Region        string `json:"region,omitempty"`
	IsActive      bool   `json:"is_active,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
	StationsCount int    `json:"stations_count,omitempty"`
}

func (b *Branch) Validate() error {
	if b.ID == "" {
		return errors.New("branch missing id")
	}
	if b.Code == "" {
		return errors.New("branch missing code")
	}
	if b.Name == "" {
		return errors.New("branch missing name")
	}
	return nil
}

// BranchInput is the payload for creating or updating a branch.
type BranchInput struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	City     string `json:"city,omitempty"`
	State    string `json:"state"`
	Region   string `json:"region,omitempty"`
	IsActive bool   `json:"is_active"`
}

func (in BranchInput) Validate() error {
	if in.Code == "" {
		return errors.New("branch code is required")
	}
	if in.Name == "" {
		return errors.New("branch name is required")
	}
	if in.State == "" {
		return errors.New("branch state is required")
	}
	return nil
}

// BranchRegions maps the region taxonomy the server knows about.
type BranchRegions struct {
	Regions        []string            `json:"regions"`
	StatesByRegion map[string][]string `json:"states_by_region"`
}

func (r *BranchRegions) Validate() error {
	if len(r.Regions) == 0 {
		return errors.New("empty region taxonomy")
	}
	return nil
}

// ListBranches fetches a page of branches.
func (c *Client) ListBranches(ctx context.Context, params ListParams) (*Page[Branch], error) {
	var out Page[Branch]
	if err := c.get(ctx, branchesPath, params.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBranch fetches one branch by ID.
func (c *Client) GetBranch(ctx context.Context, id string) (*Branch, error) {
	var out Branch
	if err := c.get(ctx, branchesPath+"/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBranchByCode fetches one branch by its business code.
func (c *Client) GetBranchByCode(ctx context.Context, code string) (*Branch, error) {
	var out Branch
	if err := c.get(ctx, branchesPath+"/by-code/"+code, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BranchRegions fetches the region taxonomy used for campaign targeting.
func (c *Client) BranchRegions(ctx context.Context) (*BranchRegions, error) {
	var out BranchRegions
	if err := c.get(ctx, branchesPath+"/regions", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateBranch creates a branch.
func (c *Client) CreateBranch(ctx context.Context, in BranchInput) (*Branch, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out Branch
	if err := c.post(ctx, branchesPath, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateBranch replaces a branch's mutable fields.
func (c *Client) UpdateBranch(ctx context.Context, id string, in BranchInput) (*Branch, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out Branch
	if err := c.put(ctx, branchesPath+"/"+id, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteBranch removes a branch.
func (c *Client) DeleteBranch(ctx context.Context, id string) error {
	return c.delete(ctx, branchesPath+"/"+id)
}
