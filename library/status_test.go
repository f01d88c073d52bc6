package library_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"library-portal/library"
)

func borrowedRecord(due time.Time) *library.BorrowRecord {
	return &library.BorrowRecord{
		ID:      "r1",
		BookID:  "b1",
		UserID:  "u1",
		Status:  library.StatusBorrowed,
		DueDate: &due,
	}
}

func Test_ResolveStatus(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(10 * 24 * time.Hour)

	tests := []struct {
		name   string
		record *library.BorrowRecord
		want   library.BorrowStatus
	}{
		{
			name: "returned_is_terminal_regardless_of_dates",
			record: &library.BorrowRecord{
				Status:  library.StatusReturned,
				DueDate: &past,
			},
			want: library.StatusReturned,
		},
		{
			name: "reserved_ignores_date_fields",
			record: &library.BorrowRecord{
				Status:  library.StatusReserved,
				DueDate: &past,
			},
			want: library.StatusReserved,
		},
		{
			name: "expired_is_terminal",
			record: &library.BorrowRecord{
				Status: library.StatusExpired,
			},
			want: library.StatusExpired,
		},
		{
			name:   "borrowed_without_due_date",
			record: &library.BorrowRecord{Status: library.StatusBorrowed},
			want:   library.StatusBorrowed,
		},
		{
			name:   "borrowed_due_in_ten_days",
			record: borrowedRecord(future),
			want:   library.StatusBorrowed,
		},
		{
			name:   "borrowed_due_in_two_days_is_due_soon",
			record: borrowedRecord(now.Add(2 * 24 * time.Hour)),
			want:   library.StatusDueSoon,
		},
		{
			name:   "borrowed_due_yesterday_is_overdue",
			record: borrowedRecord(past),
			want:   library.StatusOverdue,
		},
		{
			name: "due_exactly_three_days_out_is_not_due_soon",
			// The window test is dueDate < now+3d, strict.
			record: borrowedRecord(now.Add(3 * 24 * time.Hour)),
			want:   library.StatusBorrowed,
		},
		{
			name:   "due_just_inside_three_days",
			record: borrowedRecord(now.Add(3*24*time.Hour - time.Second)),
			want:   library.StatusDueSoon,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, library.ResolveStatus(tc.record, now))
		})
	}
}

func Test_ResolveStatus_IsPure(t *testing.T) {
	now := time.Now()
	rec := borrowedRecord(now.Add(36 * time.Hour))

	first := library.ResolveStatus(rec, now)
	second := library.ResolveStatus(rec, now)

	assert.Equal(t, first, second)
	assert.Equal(t, library.StatusBorrowed, rec.Status, "record must not be mutated")
}

func Test_IsActive(t *testing.T) {
	now := time.Now()

	assert.True(t, library.IsActive(&library.BorrowRecord{Status: library.StatusReserved}, now))
	assert.True(t, library.IsActive(borrowedRecord(now.Add(-time.Hour)), now))
	assert.False(t, library.IsActive(&library.BorrowRecord{Status: library.StatusReturned}, now))
	assert.False(t, library.IsActive(&library.BorrowRecord{Status: library.StatusExpired}, now))
}
