package library

import (
	"context"
	"net/url"
)

// Users lists the roster (librarian view).
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var out []User
	if err := c.getJSON(ctx, "/users", "Failed to fetch users", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// User fetches a single roster entry.
func (c *Client) User(ctx context.Context, id string) (*User, error) {
	var out User
	if err := c.getJSON(ctx, "/users/"+url.PathEscape(id), "Failed to fetch user", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
