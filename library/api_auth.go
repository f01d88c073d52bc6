package library

import (
	"context"
	"net/http"
)

// AuthResponse is the login payload: the authenticated user plus the bearer
// token for subsequent requests.
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// SignupResponse additionally carries a welcome message from the server.
type SignupResponse struct {
	User    User   `json:"user"`
	Token   string `json:"token"`
	Message string `json:"message"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the registration payload for POST /auth/signup.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Login authenticates against the collaborator. It does not persist the
// credential; that is the session's job.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	in := loginRequest{Email: email, Password: password}
	if err := c.sendJSON(ctx, http.MethodPost, "/auth/login", in, &out, "Login failed"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup registers a new account and returns the fresh credential.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error) {
	var out SignupResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/auth/signup", req, &out, "Signup failed"); err != nil {
		return nil, err
	}
	return &out, nil
}
