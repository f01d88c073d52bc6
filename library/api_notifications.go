package library

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
)

// Notifications lists a user's notifications, newest first. A 404 means the
// user has none yet and yields an empty slice.
func (c *Client) Notifications(ctx context.Context, userID string) ([]Notification, error) {
	if userID == "" {
		return nil, fmt.Errorf("userId is required")
	}
	var out []Notification
	path := "/notifications?userId=" + url.QueryEscape(userID)
	err := c.getJSON(ctx, path, "Failed to fetch notifications", &out)
	if err != nil {
		if isNotFound(err) {
			return []Notification{}, nil
		}
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// MarkNotificationRead flags one notification as read and returns the updated
// notification.
func (c *Client) MarkNotificationRead(ctx context.Context, notificationID string) (*Notification, error) {
	if notificationID == "" {
		return nil, fmt.Errorf("notificationId is required")
	}
	var out struct {
		Notification Notification `json:"notification"`
	}
	path := "/notifications/" + url.PathEscape(notificationID) + "/read"
	if err := c.sendJSON(ctx, http.MethodPatch, path, nil, &out, "Failed to mark notification as read"); err != nil {
		return nil, err
	}
	return &out.Notification, nil
}

// MarkAllNotificationsRead flags every unread notification for the caller and
// reports how many were updated.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := c.sendJSON(ctx, http.MethodPatch, "/notifications/read-all", nil, &out, "Failed to mark all notifications as read"); err != nil {
		return 0, err
	}
	return out.Count, nil
}
