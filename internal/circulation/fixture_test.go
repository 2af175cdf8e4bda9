package circulation

import (
	"io"
	"log/slog"
	"time"

	"github.com/library-circulation/internal/config"
	"github.com/shopspring/decimal"
)

// testClock is a settable clock starting at 2024-03-01 09:30 UTC.
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) advanceDays(days int) { c.now = c.now.AddDate(0, 0, days) }

func (c *testClock) tick() { c.now = c.now.Add(time.Minute) }

func (c *testClock) date(offsetDays int) string {
	return c.now.AddDate(0, 0, offsetDays).Format("2006-01-02")
}

type fixture struct {
	store        *memStore
	clock        *testClock
	ledger       *LoanLedger
	fines        *FineEngine
	reservations *ReservationManager
	copies       *CopyTracker
}

func newFixture(enforceQueue bool) *fixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMemStore()
	clock := newTestClock()
	cfg := config.CirculationConfig{
		DailyFineRate:           decimal.NewFromInt(10),
		EnforceReservationQueue: enforceQueue,
	}
	repos := store.repos()

	return &fixture{
		store:        store,
		clock:        clock,
		ledger:       NewLoanLedger(logger, store, repos, cfg, clock.Now),
		fines:        NewFineEngine(logger, store, repos, cfg, clock.Now),
		reservations: NewReservationManager(logger, store, repos, clock.Now),
		copies:       NewCopyTracker(logger, store, repos, clock.Now),
	}
}
