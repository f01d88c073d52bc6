package library

import "time"

// dueSoonWindow is how far ahead of the due date a borrowed book starts
// showing as due_soon.
const dueSoonWindow = 3 * 24 * time.Hour

// ResolveStatus maps a record's persisted fields to the status shown to
// users. Returned, reserved and expired resolve to themselves regardless of
// dates; a borrowed record is classified against its due date: past due is
// overdue, a due date strictly before now+3d is due_soon (a due date exactly
// 3 days out is not), anything else is borrowed.
//
// Pure function of (record, now). It runs on every render and dashboard
// aggregation, so it never touches storage.
func ResolveStatus(r *BorrowRecord, now time.Time) BorrowStatus {
	switch r.Status {
	case StatusReturned:
		return StatusReturned
	case StatusReserved:
		return StatusReserved
	case StatusExpired:
		return StatusExpired
	}

	if r.DueDate != nil {
		if now.After(*r.DueDate) {
			return StatusOverdue
		}
		if r.DueDate.Before(now.Add(dueSoonWindow)) {
			return StatusDueSoon
		}
	}

	return StatusBorrowed
}

// IsActive reports whether the record still ties up a copy: anything not yet
// returned or expired.
func IsActive(r *BorrowRecord, now time.Time) bool {
	switch ResolveStatus(r, now) {
	case StatusReturned, StatusExpired:
		return false
	}
	return true
}
