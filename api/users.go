package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/i9smart/go-campaigns-client/users"
)

const usersPath = "/api/users"

// validatePassword mirrors the portal's server-side rules so bad passwords
// fail before a network round trip.
func validatePassword(pw string) error {
	if len(pw) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune("@$!%*?&", r):
			special = true
		}
	}
	if !upper {
		return errors.New("password must contain an uppercase letter")
	}
	if !lower {
		return errors.New("password must contain a lowercase letter")
	}
	if !digit {
		return errors.New("password must contain a digit")
	}
	if !special {
		return errors.New("password must contain one of @$!%*?&")
	}
	return nil
}

// UserInput is the payload for creating a user account.
type UserInput struct {
	Email    string     `json:"email"`
	Username string     `json:"username"`
	Password string     `json:"password"`
	FullName string     `json:"full_name,omitempty"`
	Role     users.Role `json:"role"`
}

func (in UserInput) Validate() error {
	if !strings.Contains(in.Email, "@") {
		return fmt.Errorf("invalid email %q", in.Email)
	}
	if len(in.Username) < 3 {
		return errors.New("username must be at least 3 characters")
	}
	if !in.Role.Valid() {
		return fmt.Errorf("unknown role %q", in.Role)
	}
	return validatePassword(in.Password)
}

// UserUpdate is the payload for changing a user account. Nil fields are left
// untouched by the server.
type UserUpdate struct {
	Email      *string     `json:"email,omitempty"`
	Username   *string     `json:"username,omitempty"`
	FullName   *string     `json:"full_name,omitempty"`
	Role       *users.Role `json:"role,omitempty"`
	IsActive   *bool       `json:"is_active,omitempty"`
	IsVerified *bool       `json:"is_verified,omitempty"`
}

func (in UserUpdate) Validate() error {
	if in.Email != nil && !strings.Contains(*in.Email, "@") {
		return fmt.Errorf("invalid email %q", *in.Email)
	}
	if in.Username != nil && len(*in.Username) < 3 {
		return errors.New("username must be at least 3 characters")
	}
	if in.Role != nil && !in.Role.Valid() {
		return fmt.Errorf("unknown role %q", *in.Role)
	}
	return nil
}

// UserListParams filter and order the user listing.
type UserListParams struct {
	Page     int
	PageSize int
	Search   string
	Role     users.Role
	IsActive *bool
	SortBy   string
	Order    string
}

func (p UserListParams) values() url.Values {
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
	if p.Role != "" {
		q.Set("role", string(p.Role))
	}
	if p.IsActive != nil {
		q.Set("is_active", strconv.FormatBool(*p.IsActive))
	}
	if p.SortBy != "" {
		q.Set("sort_by", p.SortBy)
	}
	if p.Order != "" {
		q.Set("order", p.Order)
	}
	return q
}

// ListUsers fetches a page of user accounts. Admin only.
func (c *Client) ListUsers(ctx context.Context, params UserListParams) (*Page[users.User], error) {
	var out Page[users.User]
	if err := c.get(ctx, usersPath, params.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUser fetches one user account by ID.
func (c *Client) GetUser(ctx context.Context, id string) (*users.User, error) {
	var out users.User
	if err := c.get(ctx, usersPath+"/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateUser creates a user account. Admin only.
func (c *Client) CreateUser(ctx context.Context, in UserInput) (*users.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out users.User
	if err := c.post(ctx, usersPath, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUser changes the given fields of a user account. Admin only.
func (c *Client) UpdateUser(ctx context.Context, id string, in UserUpdate) (*users.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out users.User
	if err := c.put(ctx, usersPath+"/"+id, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser deactivates a user account. Admin only.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.delete(ctx, usersPath+"/"+id)
}

// ResetUserPassword sets a new password on another user's account. Admin only.
func (c *Client) ResetUserPassword(ctx context.Context, id, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	return c.put(ctx, usersPath+"/"+id+"/password", map[string]string{"new_password": newPassword}, nil)
}

// UpdateMe changes the signed-in user's own profile fields.
func (c *Client) UpdateMe(ctx context.Context, in UserUpdate) (*users.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out users.User
	if err := c.put(ctx, mePath, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangePassword changes the signed-in user's own password.
func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	body := map[string]string{
		"current_password": currentPassword,
		"new_password":     newPassword,
	}
	return c.put(ctx, mePath+"/password", body, nil)
}
