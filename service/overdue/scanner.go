package overdue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"libraryapi/model"
	"libraryapi/service/notify"
)

const NothingOverdue = "No borrowings overdue today!"

type Repo interface {
	ListOverdue(ctx context.Context, today time.Time) ([]model.Overdue, error)
	MarkOverdueNotified(ctx context.Context, id int64, on time.Time) error
}

type Report struct {
	Found   int
	Alerted int
	Skipped int
	Nothing bool
}

type Scanner struct {
	r   Repo
	n   notify.Notifier
	log *slog.Logger
	now func() time.Time
}

func NewScanner(r Repo, n notify.Notifier, log *slog.Logger) *Scanner {
	return &Scanner{r: r, n: n, log: log, now: time.Now}
}

// WithClock swaps the scanner's clock; tests pin "today" with it.
func (s *Scanner) WithClock(now func() time.Time) *Scanner {
	s.now = now
	return s
}

// Scan alerts every unreturned borrowing due today or earlier, at most once per
// calendar day per borrowing. A run that finds nothing says so.
func (s *Scanner) Scan(ctx context.Context) (Report, error) {
	today := model.DateOf(s.now().UTC())

	rows, err := s.r.ListOverdue(ctx, today)
	if err != nil {
		return Report{}, err
	}

	rep := Report{Found: len(rows)}
	if len(rows) == 0 {
		s.n.Notify(NothingOverdue)
		rep.Nothing = true
		return rep, nil
	}

	for _, o := range rows {
		if o.NotifiedOn != nil && model.DateOf(*o.NotifiedOn).Equal(today) {
			rep.Skipped++
			continue
		}
		s.n.Notify(fmt.Sprintf(
			"Overdue borrowing alert! 📚\nBook: %s\nAuthor: %s\nBorrowed by: %s\nExpected return date: %s",
			o.BookTitle, o.BookAuthor, o.UserEmail, o.ExpectedReturnDate.Format(time.DateOnly),
		))
		rep.Alerted++
		if err := s.r.MarkOverdueNotified(ctx, o.BorrowingID, today); err != nil {
			s.log.ErrorContext(ctx, "mark overdue notified failed", "borrowing_id", o.BorrowingID, "err", err)
		}
	}

	s.log.InfoContext(ctx, "overdue scan done",
		"found", rep.Found, "alerted", rep.Alerted, "skipped", rep.Skipped)
	return rep, nil
}
