package api

import (
	"context"
	"encoding/json"
	"errors"
)

// TopCampaign is a row of the dashboard's priority ranking. StationsCount is
// raw because the server sends either a number or the string "global".
type TopCampaign struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Priority      int             `json:"priority"`
	Status        string          `json:"status,omitempty"`
	StationsCount json.RawMessage `json:"stations_count,omitempty"`
}

// DashboardMetrics is the admin dashboard summary.
type DashboardMetrics struct {
	Overview struct {
		TotalCampaigns int `json:"total_campaigns"`
		TotalActive    int `json:"total_active"`
		TotalImages    int `json:"total_images"`
		TotalUsers     int `json:"total_users"`
	} `json:"overview"`
	CampaignsByType struct {
		Global   int `json:"global"`
		Specific int `json:"specific"`
	} `json:"campaigns_by_type"`
	RecentActivity struct {
		Last7Days  int `json:"last_7_days"`
		Last30Days int `json:"last_30_days"`
	} `json:"recent_activity"`
	TopPriorityCampaigns []TopCampaign `json:"top_priority_campaigns,omitempty"`
}

func (m *DashboardMetrics) Validate() error {
	if m.Overview.TotalCampaigns < m.Overview.TotalActive {
		return errors.New("active campaign count exceeds total")
	}
	return nil
}

// Dashboard fetches the admin dashboard summary.
func (c *Client) Dashboard(ctx context.Context) (*DashboardMetrics, error) {
	var out DashboardMetrics
	if err := c.get(ctx, "/api/metrics/dashboard", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
