package library_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-portal/library"
)

func Test_Store_SkipsFetchWithoutCredential(t *testing.T) {
	// Unreachable base URL: a real fetch attempt would error, not skip.
	session := newTestSession(t)
	client := library.NewClient("http://127.0.0.1:1", session)
	store := library.NewStore(client, session)

	store.RefetchBooks(context.Background())

	books, loading, err := store.Books()
	assert.Empty(t, books)
	assert.False(t, loading)
	assert.NoError(t, err)
}

func Test_Store_InitialStateIsLoading(t *testing.T) {
	session := newTestSession(t)
	client := library.NewClient("http://127.0.0.1:1", session)
	store := library.NewStore(client, session)

	_, loading, err := store.Books()
	assert.True(t, loading)
	assert.NoError(t, err)

	_, loading, err = store.BorrowRecords()
	assert.True(t, loading)
	assert.NoError(t, err)
}

func Test_Store_RefetchReplacesWholesale(t *testing.T) {
	api := newFakeAPI(t)
	api.addBook("b1", "The Great Gatsby", 5, 3)
	session := newAuthedSession(t)
	store := library.NewStore(library.NewClient(api.srv.URL, session), session)

	store.RefetchBooks(context.Background())
	books, loading, err := store.Books()
	require.NoError(t, err)
	assert.False(t, loading)
	require.Len(t, books, 1)

	api.addBook("b2", "Dune", 3, 3)
	store.RefetchBooks(context.Background())
	books, _, _ = store.Books()
	assert.Len(t, books, 2)

	b, ok := store.BookByID("b2")
	require.True(t, ok)
	assert.Equal(t, "Dune", b.Title)
}

func Test_Store_FetchFailureKeepsLastGood(t *testing.T) {
	api := newFakeAPI(t)
	api.addBook("b1", "Sapiens", 5, 5)
	session := newAuthedSession(t)
	store := library.NewStore(library.NewClient(api.srv.URL, session), session)

	store.RefetchBooks(context.Background())
	books, _, err := store.Books()
	require.NoError(t, err)
	require.Len(t, books, 1)

	api.setFailBooks(true)
	store.RefetchBooks(context.Background())

	books, loading, err := store.Books()
	assert.Len(t, books, 1, "last-good collection preserved")
	assert.False(t, loading)
	require.Error(t, err)
	var apiErr *library.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "catalog unavailable", apiErr.Message)

	// Recovery clears the error.
	api.setFailBooks(false)
	store.RefetchBooks(context.Background())
	_, _, err = store.Books()
	assert.NoError(t, err)
}

func Test_Store_EmptyBorrowsAndNotificationsAreNotErrors(t *testing.T) {
	api := newFakeAPI(t)
	session := newAuthedSession(t)
	store := library.NewStore(library.NewClient(api.srv.URL, session), session)

	store.RefetchBorrowRecords(context.Background())
	records, loading, err := store.BorrowRecords()
	assert.Empty(t, records)
	assert.False(t, loading)
	assert.NoError(t, err)

	store.RefetchNotifications(context.Background(), "u1")
	notifications, loading, err := store.Notifications()
	assert.Empty(t, notifications)
	assert.False(t, loading)
	assert.NoError(t, err)
}

func Test_Store_LoginSignalTriggersRefetch(t *testing.T) {
	api := newFakeAPI(t)
	api.addBook("b1", "Atomic Habits", 6, 6)

	// Session starts unauthenticated: bootstrap fetches nothing.
	session := newTestSession(t)
	store := library.NewStore(library.NewClient(api.srv.URL, session), session)
	store.Bootstrap(context.Background())
	books, _, _ := store.Books()
	assert.Empty(t, books)

	// Login repopulates the store via the session signal.
	u := &library.User{ID: "u1", Email: "u1@example.com", Role: library.RoleClient}
	require.NoError(t, session.SaveCredentials(u, "test-token"))

	books, loading, err := store.Books()
	require.NoError(t, err)
	assert.False(t, loading)
	assert.Len(t, books, 1)
}

func Test_Store_UserBorrowRecordsIsLiveView(t *testing.T) {
	api := newFakeAPI(t)
	api.addBook("b1", "Clean Code", 3, 3)
	session := newAuthedSession(t)
	store := library.NewStore(library.NewClient(api.srv.URL, session), session)
	store.Bootstrap(context.Background())

	assert.Empty(t, store.UserBorrowRecords("u1"))

	_, err := store.Reserve(context.Background(), "b1")
	require.NoError(t, err)

	records := store.UserBorrowRecords("u1")
	require.Len(t, records, 1)
	assert.Equal(t, library.StatusReserved, records[0].Status)
	assert.Empty(t, store.UserBorrowRecords("u2"))
}

func Test_Store_Stats(t *testing.T) {
	session := newTestSession(t)
	client := library.NewClient("http://127.0.0.1:1", session)
	store := library.NewStore(client, session)

	now := time.Now()
	stats := store.Stats(now)
	assert.Zero(t, stats.TotalBooks)
	assert.Zero(t, stats.ActiveBorrows)

	// Populate through a fake so the store owns the data path.
	api := newFakeAPI(t)
	api.addBook("b1", "Dune", 3, 3)
	api.addBook("b2", "Sapiens", 5, 5)
	session2 := newAuthedSession(t)
	store2 := library.NewStore(library.NewClient(api.srv.URL, session2), session2)
	store2.Bootstrap(context.Background())

	_, err := store2.Reserve(context.Background(), "b1")
	require.NoError(t, err)
	rec, err := store2.Reserve(context.Background(), "b2")
	require.NoError(t, err)
	_, err = store2.ConfirmPickup(context.Background(), rec.ID, 14)
	require.NoError(t, err)

	stats = store2.Stats(time.Now())
	assert.Equal(t, 2, stats.TotalBooks)
	assert.Equal(t, 2, stats.ActiveBorrows)
	assert.Zero(t, stats.OverdueBooks)
	require.Len(t, stats.MostBorrowedBooks, 2)
	assert.Equal(t, 1, stats.MostBorrowedBooks[0].Count)
}
