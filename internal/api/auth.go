package api

import (
	"context"

	"github.com/nhle/taskflow/internal/model"
)

// Login authenticates with email and password. On success the session
// cookie is stored in the jar and persisted if a credential store was
// configured.
func (c *Client) Login(ctx context.Context, input model.LoginInput) (model.AuthResponse, error) {
	var resp model.AuthResponse
	if err := c.post(ctx, "/auth/login", input, &resp); err != nil {
		return model.AuthResponse{}, err
	}
	c.saveSession()
	return resp, nil
}

// Register creates a new account and logs it in.
func (c *Client) Register(ctx context.Context, input model.RegisterInput) (model.AuthResponse, error) {
	var resp model.AuthResponse
	if err := c.post(ctx, "/auth/register", input, &resp); err != nil {
		return model.AuthResponse{}, err
	}
	c.saveSession()
	return resp, nil
}

// Profile fetches the current user for the active session.
func (c *Client) Profile(ctx context.Context) (model.User, error) {
	var user model.User
	if err := c.get(ctx, "/auth/me", nil, &user); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// Logout invalidates the server-side session and drops the persisted
// cookie regardless of the call's outcome.
func (c *Client) Logout(ctx context.Context) error {
	err := c.post(ctx, "/auth/logout", nil, nil)
	c.ClearSession()
	return err
}
