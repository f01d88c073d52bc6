package library

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// BorrowRecords lists all borrow records visible to the caller. A 404 means
// the caller simply has none yet and yields an empty slice.
func (c *Client) BorrowRecords(ctx context.Context) ([]BorrowRecord, error) {
	var out []BorrowRecord
	err := c.getJSON(ctx, "/borrows", "Failed to fetch borrow records", &out)
	if err != nil {
		if isNotFound(err) {
			return []BorrowRecord{}, nil
		}
		return nil, err
	}
	return out, nil
}

// BorrowRecord fetches a single record. A 404 maps to ErrRecordNotFound.
func (c *Client) BorrowRecord(ctx context.Context, id string) (*BorrowRecord, error) {
	var out BorrowRecord
	if err := c.getJSON(ctx, "/borrows/"+url.PathEscape(id), "Failed to fetch borrow record", &out); err != nil {
		if isNotFound(err) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &out, nil
}

// ReserveBook creates a reservation for one copy and returns the created
// record (status reserved, 48h pickup window).
func (c *Client) ReserveBook(ctx context.Context, bookID string) (*BorrowRecord, error) {
	var out BorrowRecord
	path := "/borrows/" + url.PathEscape(bookID) + "/reserve"
	if err := c.sendJSON(ctx, http.MethodPost, path, nil, &out, "Failed to reserve book"); err != nil {
		return nil, err
	}
	return &out, nil
}

type pickupRequest struct {
	LoanDurationDays int `json:"loanDurationDays"`
}

// ConfirmPickup transitions a reserved record to borrowed and returns the
// updated record with pickup and due dates set.
func (c *Client) ConfirmPickup(ctx context.Context, recordID string, loanDurationDays int) (*BorrowRecord, error) {
	var out BorrowRecord
	path := "/borrows/" + url.PathEscape(recordID) + "/pickup"
	in := pickupRequest{LoanDurationDays: loanDurationDays}
	if err := c.sendJSON(ctx, http.MethodPost, path, in, &out, "Failed to confirm pickup"); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmReturn transitions a record to returned and returns the updated
// record with the return date set.
func (c *Client) ConfirmReturn(ctx context.Context, recordID string) (*BorrowRecord, error) {
	var out BorrowRecord
	path := "/borrows/" + url.PathEscape(recordID) + "/return"
	if err := c.sendJSON(ctx, http.MethodPost, path, nil, &out, "Failed to confirm return"); err != nil {
		return nil, err
	}
	return &out, nil
}

// BorrowHistory queries historical records bounded by an optional date range.
// It always hits the network; results are not cached in the store.
func (c *Client) BorrowHistory(ctx context.Context, from, to *time.Time) ([]BorrowRecord, error) {
	q := url.Values{}
	if from != nil {
		q.Set("from", from.Format(time.RFC3339))
	}
	if to != nil {
		q.Set("to", to.Format(time.RFC3339))
	}
	path := "/borrows/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []BorrowRecord
	err := c.getJSON(ctx, path, "Failed to fetch borrow history", &out)
	if err != nil {
		if isNotFound(err) {
			return []BorrowRecord{}, nil
		}
		return nil, err
	}
	return out, nil
}
