package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/i9smart/go-campaigns-client/apierror"
	"github.com/i9smart/go-campaigns-client/users"
)

// Credentials are the username/password pair submitted at login.
type Credentials struct {
	Username string
	Password string
}

// Validate checks the pair before it is sent anywhere.
func (c Credentials) Validate() error {
	if c.Username == "" {
		return errors.New("username is required")
	}
	if c.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// tokenResponse is the payload of the login and refresh endpoints.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func (t *tokenResponse) Validate() error {
	if t.AccessToken == "" {
		return errors.New("missing access_token")
	}
	if t.RefreshToken == "" {
		return errors.New("missing refresh_token")
	}
	return nil
}

// Login exchanges credentials for a token pair and stores it. The server
// expects a form-encoded body on this endpoint.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	form := url.Values{
		"username": {creds.Username},
		"password": {creds.Password},
	}

	var tr tokenResponse
	if err := c.do(ctx, "POST", loginPath, nil, form, &tr); err != nil {
		return err
	}
	if err := c.store.SetTokens(ctx, tr.AccessToken, tr.RefreshToken); err != nil {
		return fmt.Errorf("store tokens: %w", err)
	}
	return nil
}

// RefreshTokens exchanges the stored refresh token for a new pair and stores
// it. Concurrent calls collapse into a single network request; every caller
// observes the same resulting access token or the same error.
func (c *Client) RefreshTokens(ctx context.Context) (string, error) {
	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		refresh, err := c.store.RefreshToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("read refresh token: %w", err)
		}
		if refresh == "" {
			return nil, apierror.Wrap(apierror.CategoryAuthorization,
				"cannot refresh session", apierror.ErrNoRefreshToken)
		}

		var tr tokenResponse
		body := map[string]string{"refresh_token": refresh}
		if err := c.do(ctx, "POST", refreshPath, nil, body, &tr); err != nil {
			c.metrics.refreshFailures.Inc()
			return nil, err
		}
		if err := c.store.SetTokens(ctx, tr.AccessToken, tr.RefreshToken); err != nil {
			return nil, fmt.Errorf("store tokens: %w", err)
		}

		c.metrics.refreshes.Inc()
		c.logger.Debug().Msg("token pair refreshed")
		return tr.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Me fetches the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*users.User, error) {
	var u users.User
	if err := c.get(ctx, mePath, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout notifies the server that the session is over. Callers treat failures
// as advisory: local teardown never depends on this call succeeding.
func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, logoutPath, nil, nil)
}
