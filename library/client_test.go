package library_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-portal/library"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func Test_Client_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeBody(w, http.StatusOK, []library.Book{})
	}))
	t.Cleanup(srv.Close)

	c := library.NewClient(srv.URL, staticToken("tok123"))
	_, err := c.Books(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Bearer tok123", gotAuth)
}

func Test_Client_NotFoundOnListsMeansEmpty(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/borrows", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "No borrow records found")
	})
	r.HandleFunc("/notifications", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "No notifications found")
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	c := library.NewClient(srv.URL, staticToken("tok"))

	records, err := c.BorrowRecords(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)

	notifications, err := c.Notifications(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, notifications)
}

func Test_Client_ServerMessageWinsOverFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusConflict, "No copies available")
	}))
	t.Cleanup(srv.Close)

	c := library.NewClient(srv.URL, staticToken("tok"))
	_, err := c.ReserveBook(context.Background(), "b1")

	var apiErr *library.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "No copies available", apiErr.Message)
}

func Test_Client_FallbackWhenErrorBodyUnreadable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("<html>boom</html>"))
	}))
	t.Cleanup(srv.Close)

	c := library.NewClient(srv.URL, staticToken("tok"))
	_, err := c.Books(context.Background())

	var apiErr *library.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Failed to fetch books", apiErr.Message)
}

func Test_Client_MalformedSuccessBodyIsParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("{not json"))
	}))
	t.Cleanup(srv.Close)

	c := library.NewClient(srv.URL, staticToken("tok"))
	_, err := c.BorrowRecords(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, library.ErrParseResponse))
}

func Test_Client_DecodesISOTimestamps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"r1","bookId":"b1","userId":"u1","status":"borrowed",
			"reservedAt":"2025-06-01T10:00:00Z","reservationExpiresAt":"2025-06-03T10:00:00Z",
			"pickupDate":"2025-06-02T09:30:00Z","dueDate":"2025-06-16T09:30:00Z"}]`))
	}))
	t.Cleanup(srv.Close)

	c := library.NewClient(srv.URL, staticToken("tok"))
	records, err := c.BorrowRecords(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), rec.ReservedAt)
	assert.Equal(t, library.ReservationWindow, rec.ReservationExpiresAt.Sub(rec.ReservedAt))
	require.NotNil(t, rec.DueDate)
	assert.Equal(t, time.Date(2025, 6, 16, 9, 30, 0, 0, time.UTC), *rec.DueDate)
	assert.Nil(t, rec.ReturnDate)
}

func Test_Client_NotificationsSortedNewestFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"n1","userId":"u1","title":"old","message":"m","type":"info","read":false,"createdAt":"2025-06-01T10:00:00Z"},
			{"id":"n2","userId":"u1","title":"new","message":"m","type":"info","read":false,"createdAt":"2025-06-05T10:00:00Z"}
		]`))
	}))
	t.Cleanup(srv.Close)

	c := library.NewClient(srv.URL, staticToken("tok"))
	notifications, err := c.Notifications(context.Background(), "u1")

	require.NoError(t, err)
	require.Len(t, notifications, 2)
	assert.Equal(t, "n2", notifications[0].ID)
	assert.Equal(t, "n1", notifications[1].ID)
}

func Test_Client_MarkAllNotificationsReadReturnsCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		writeBody(w, http.StatusOK, map[string]int{"count": 3})
	}))
	t.Cleanup(srv.Close)

	c := library.NewClient(srv.URL, staticToken("tok"))
	count, err := c.MarkAllNotificationsRead(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
