package library

import (
	"context"
	"time"
)

// The borrowing state machine: reserved, then borrowed, then returned.
// Reservation timeout (reserved to expired) happens server-side. The remote
// call always completes before local state changes, so a failed mutation
// leaves no partial local state behind.

// beginOp claims the in-flight slot for key, rejecting overlapping
// invocations for the same record or book.
func (s *Store) beginOp(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[key]; busy {
		return ErrOperationInFlight
	}
	s.inflight[key] = struct{}{}
	return nil
}

func (s *Store) endOp(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, key)
}

// Reserve creates a reservation for one copy of bookID. The availability
// check here is advisory; the collaborator may still reject a race with
// another reservation, and its error is returned untouched. On success the
// created record joins the local collection and the catalog is refetched for
// the authoritative copy count.
func (s *Store) Reserve(ctx context.Context, bookID string) (*BorrowRecord, error) {
	book, ok := s.BookByID(bookID)
	if !ok {
		return nil, ErrBookNotFound
	}
	if book.AvailableCopies <= 0 {
		return nil, ErrBookUnavailable
	}

	if err := s.beginOp("book:" + bookID); err != nil {
		return nil, err
	}
	defer s.endOp("book:" + bookID)

	record, err := s.client.ReserveBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.records = append(s.records, *record)
	s.mu.Unlock()

	s.RefetchBooks(ctx)
	return record, nil
}

// ConfirmPickup transitions a reserved record to borrowed. Zero or negative
// loanDurationDays means the default loan duration. Callers must only invoke
// this on reserved records; the state machine does not re-validate.
func (s *Store) ConfirmPickup(ctx context.Context, recordID string, loanDurationDays int) (*BorrowRecord, error) {
	if loanDurationDays <= 0 {
		loanDurationDays = DefaultLoanDurationDays
	}

	if err := s.beginOp("record:" + recordID); err != nil {
		return nil, err
	}
	defer s.endOp("record:" + recordID)

	record, err := s.client.ConfirmPickup(ctx, recordID, loanDurationDays)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.replaceRecordLocked(record)
	s.mu.Unlock()
	return record, nil
}

// ConfirmReturn transitions a record to returned. The local record flips as
// soon as the collaborator confirms, and the freed copy is bumped
// optimistically so the UI is responsive while the catalog refetch brings in
// the authoritative count.
func (s *Store) ConfirmReturn(ctx context.Context, recordID string) (*BorrowRecord, error) {
	if err := s.beginOp("record:" + recordID); err != nil {
		return nil, err
	}
	defer s.endOp("record:" + recordID)

	record, err := s.client.ConfirmReturn(ctx, recordID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.replaceRecordLocked(record)
	if book, ok := s.booksByID[record.BookID]; ok && book.AvailableCopies < book.TotalCopies {
		book.AvailableCopies++
		s.booksByID[record.BookID] = book
		for i := range s.books {
			if s.books[i].ID == book.ID {
				s.books[i] = book
				break
			}
		}
	}
	s.mu.Unlock()

	s.RefetchBooks(ctx)
	return record, nil
}

// BorrowHistory queries the collaborator for historical records in the
// optional date range. Always a network call; the result bypasses the store's
// collections.
func (s *Store) BorrowHistory(ctx context.Context, from, to *time.Time) ([]BorrowRecord, error) {
	return s.client.BorrowHistory(ctx, from, to)
}

// replaceRecordLocked swaps the stored record matching updated.ID. Records
// the collaborator returns for ids we never saw are appended rather than
// dropped. Caller holds the write lock.
func (s *Store) replaceRecordLocked(updated *BorrowRecord) {
	for i := range s.records {
		if s.records[i].ID == updated.ID {
			s.records[i] = *updated
			return
		}
	}
	s.records = append(s.records, *updated)
}
