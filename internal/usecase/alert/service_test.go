package alert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/bookvalue-backend/internal/adapter/repository/memory"
	"github.com/simaogato/bookvalue-backend/internal/clock"
	"github.com/simaogato/bookvalue-backend/internal/domain"
	"github.com/simaogato/bookvalue-backend/internal/usecase/classifier"
)

var start = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store   *memory.Store
	clock   *clock.FakeClock
	reprice domain.RepriceFunc
	owner   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c, err := classifier.NewClassifier(domain.DefaultTierThresholds())
	require.NoError(t, err)
	return &fixture{
		store:   memory.NewStore(),
		clock:   clock.NewFakeClock(start),
		reprice: c.Reprice(),
		owner:   uuid.New(),
	}
}

func (f *fixture) service(refresher BookRefresher, cfg Config) *AlertService {
	return NewAlertService(f.store.Alerts(), f.store.Books(), refresher, cfg, f.clock, nil, nil)
}

func (f *fixture) addBook(t *testing.T, title string) *domain.Book {
	t.Helper()
	b := &domain.Book{
		UserID:         f.owner,
		ISBN:           "9780000000000",
		Title:          title,
		Condition:      domain.ConditionGood,
		HistoricalHigh: decimal.NewFromInt(40),
	}
	require.NoError(t, f.store.Books().Create(context.Background(), b))
	return b
}

func (f *fixture) setPrice(t *testing.T, bookID uuid.UUID, price int64) {
	t.Helper()
	f.clock.Advance(time.Minute)
	_, err := f.store.Books().ApplyPrice(context.Background(), domain.PriceUpdate{
		BookID:     bookID,
		Price:      decimal.NewFromInt(price),
		VendorName: "vendor",
		ObservedAt: f.clock.Now(),
	}, f.reprice)
	require.NoError(t, err)
}

func (f *fixture) addAlert(t *testing.T, bookID uuid.UUID, mode domain.AlertMode, target int64) *domain.PriceAlert {
	t.Helper()
	f.clock.Advance(time.Second)
	a := &domain.PriceAlert{
		UserID:      f.owner,
		BookID:      bookID,
		TargetPrice: decimal.NewFromInt(target),
		Mode:        mode,
		Active:      true,
		CreatedAt:   f.clock.Now(),
	}
	require.NoError(t, f.store.Alerts().Create(context.Background(), a))
	return a
}

func TestCheckAllAlerts_BelowTarget(t *testing.T) {
	f := newFixture(t)
	cheap := f.addBook(t, "Cheap")
	dear := f.addBook(t, "Dear")
	f.setPrice(t, cheap.ID, 18)
	f.setPrice(t, dear.ID, 25)

	a1 := f.addAlert(t, cheap.ID, domain.AlertModeBelow, 20)
	a2 := f.addAlert(t, dear.ID, domain.AlertModeBelow, 20)

	summary, err := f.service(nil, Config{}).CheckAllAlerts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalChecked)
	assert.Equal(t, 1, summary.TriggeredCount)
	assert.Equal(t, 0, summary.FailedCount)
	assert.True(t, summary.Success)

	require.Len(t, summary.Results, 2)
	assert.Equal(t, a1.ID, summary.Results[0].AlertID)
	assert.True(t, summary.Results[0].Triggered)
	assert.Equal(t, ReasonFired, summary.Results[0].Reason)
	assert.True(t, decimal.NewFromInt(18).Equal(summary.Results[0].CurrentPrice))

	assert.Equal(t, a2.ID, summary.Results[1].AlertID)
	assert.False(t, summary.Results[1].Triggered)
	assert.Equal(t, ReasonNotMet, summary.Results[1].Reason)

	notifications, err := f.store.Notifications().ListByAlert(context.Background(), a1.ID)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, "Price alert: Cheap", notifications[0].Title)
	assert.Equal(t, f.owner, notifications[0].UserID)
}

func TestCheckAllAlerts_Modes(t *testing.T) {
	tests := []struct {
		name      string
		mode      domain.AlertMode
		target    int64
		price     int64
		triggered bool
	}{
		{name: "below at target", mode: domain.AlertModeBelow, target: 20, price: 20, triggered: true},
		{name: "below above target", mode: domain.AlertModeBelow, target: 20, price: 21, triggered: false},
		{name: "above at target", mode: domain.AlertModeAbove, target: 30, price: 30, triggered: true},
		{name: "above under target", mode: domain.AlertModeAbove, target: 30, price: 29, triggered: false},
		// high is 40, so 30 is 75 percent
		{name: "percent reached", mode: domain.AlertModePercentOfHigh, target: 75, price: 30, triggered: true},
		{name: "percent short", mode: domain.AlertModePercentOfHigh, target: 80, price: 30, triggered: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			b := f.addBook(t, "Book")
			f.setPrice(t, b.ID, tt.price)
			f.addAlert(t, b.ID, tt.mode, tt.target)

			summary, err := f.service(nil, Config{}).CheckAllAlerts(context.Background())
			require.NoError(t, err)
			require.Len(t, summary.Results, 1)
			assert.Equal(t, tt.triggered, summary.Results[0].Triggered)
		})
	}
}

func TestCheckAllAlerts_AtMostOncePerCrossing(t *testing.T) {
	f := newFixture(t)
	b := f.addBook(t, "Book")
	f.setPrice(t, b.ID, 18)
	a := f.addAlert(t, b.ID, domain.AlertModeBelow, 20)
	svc := f.service(nil, Config{})

	for i := 0; i < 5; i++ {
		_, err := svc.CheckAllAlerts(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, f.store.NotificationCount(a.ID))

	stored, err := f.store.Alerts().GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertStateTriggered, stored.State())
}

func TestCheckAllAlerts_ConcurrentPassesNotifyOnce(t *testing.T) {
	f := newFixture(t)
	b := f.addBook(t, "Book")
	f.setPrice(t, b.ID, 18)
	a := f.addAlert(t, b.ID, domain.AlertModeBelow, 20)
	svc := f.service(nil, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CheckAllAlerts(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.store.NotificationCount(a.ID))
}

func TestCheckAllAlerts_RearmsAfterConditionClears(t *testing.T) {
	f := newFixture(t)
	b := f.addBook(t, "Book")
	a := f.addAlert(t, b.ID, domain.AlertModeBelow, 20)
	svc := f.service(nil, Config{})

	f.setPrice(t, b.ID, 18)
	summary, err := svc.CheckAllAlerts(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Results[0].Triggered)

	f.setPrice(t, b.ID, 25)
	summary, err = svc.CheckAllAlerts(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Results[0].Rearmed)
	assert.Equal(t, ReasonRearmed, summary.Results[0].Reason)

	f.setPrice(t, b.ID, 17)
	summary, err = svc.CheckAllAlerts(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Results[0].Triggered)

	assert.Equal(t, 2, f.store.NotificationCount(a.ID))
}

func TestCheckAllAlerts_UnpricedBookDoesNotAbortPass(t *testing.T) {
	f := newFixture(t)
	unpriced := f.addBook(t, "Unpriced")
	priced := f.addBook(t, "Priced")
	f.setPrice(t, priced.ID, 10)

	f.addAlert(t, unpriced.ID, domain.AlertModeBelow, 20)
	ok := f.addAlert(t, priced.ID, domain.AlertModeBelow, 20)

	summary, err := f.service(nil, Config{}).CheckAllAlerts(context.Background())
	// Missing price data is per-alert, not a pass failure
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalChecked)
	assert.Equal(t, 1, summary.FailedCount)
	assert.Equal(t, 1, summary.TriggeredCount)
	assert.False(t, summary.Success)

	assert.ErrorIs(t, summary.Results[0].Err, domain.ErrNoPriceData)
	assert.Equal(t, ReasonLookupFailed, summary.Results[0].Reason)
	assert.True(t, summary.Results[1].Triggered)
	assert.Equal(t, 1, f.store.NotificationCount(ok.ID))
}

// hangingRefresher blocks forever for one book and ignores cancellation
type hangingRefresher struct {
	books   domain.BookRepository
	hangOn  uuid.UUID
	release chan struct{}
}

func (h *hangingRefresher) RefreshBook(ctx context.Context, bookID uuid.UUID) (*domain.Book, error) {
	if bookID == h.hangOn {
		<-h.release
	}
	return h.books.GetByID(ctx, bookID)
}

func TestCheckAllAlerts_HungLookupTimesOut(t *testing.T) {
	f := newFixture(t)
	slow := f.addBook(t, "Slow")
	fast := f.addBook(t, "Fast")
	f.setPrice(t, slow.ID, 10)
	f.setPrice(t, fast.ID, 10)
	f.addAlert(t, slow.ID, domain.AlertModeBelow, 20)
	f.addAlert(t, fast.ID, domain.AlertModeBelow, 20)

	refresher := &hangingRefresher{books: f.store.Books(), hangOn: slow.ID, release: make(chan struct{})}
	t.Cleanup(func() { close(refresher.release) })

	svc := f.service(refresher, Config{Concurrency: 1, Timeout: 50 * time.Millisecond})

	done := make(chan struct{})
	var summary *CheckSummary
	var err error
	go func() {
		summary, err = svc.CheckAllAlerts(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("alert pass blocked on a hung lookup")
	}

	require.NoError(t, err)
	assert.ErrorIs(t, summary.Results[0].Err, context.DeadlineExceeded)
	assert.True(t, summary.Results[1].Triggered)
}

// failingAlertRepo fails the trigger write for one alert
type failingAlertRepo struct {
	domain.AlertRepository
	failFor uuid.UUID
}

var errWrite = errors.New("connection reset")

func (r *failingAlertRepo) MarkTriggered(ctx context.Context, alertID uuid.UUID, at time.Time, n *domain.Notification) (bool, error) {
	if alertID == r.failFor {
		return false, errWrite
	}
	return r.AlertRepository.MarkTriggered(ctx, alertID, at, n)
}

func TestCheckAllAlerts_WriteFailureIsReported(t *testing.T) {
	f := newFixture(t)
	b1 := f.addBook(t, "One")
	b2 := f.addBook(t, "Two")
	f.setPrice(t, b1.ID, 10)
	f.setPrice(t, b2.ID, 10)
	bad := f.addAlert(t, b1.ID, domain.AlertModeBelow, 20)
	good := f.addAlert(t, b2.ID, domain.AlertModeBelow, 20)

	repo := &failingAlertRepo{AlertRepository: f.store.Alerts(), failFor: bad.ID}
	svc := NewAlertService(repo, f.store.Books(), nil, Config{}, f.clock, nil, nil)

	summary, err := svc.CheckAllAlerts(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errWrite)

	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.FailedCount)
	assert.Equal(t, ReasonWriteFailed, summary.Results[0].Reason)
	assert.True(t, summary.Results[1].Triggered)
	assert.Equal(t, 0, f.store.NotificationCount(bad.ID))
	assert.Equal(t, 1, f.store.NotificationCount(good.ID))
}

func TestCheckAllAlerts_InactiveAlertsSkipped(t *testing.T) {
	f := newFixture(t)
	b := f.addBook(t, "Book")
	f.setPrice(t, b.ID, 10)
	a := f.addAlert(t, b.ID, domain.AlertModeBelow, 20)
	svc := f.service(nil, Config{})

	_, err := svc.SetActive(context.Background(), a.ID, false)
	require.NoError(t, err)

	summary, err := svc.CheckAllAlerts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalChecked)
	assert.Empty(t, summary.Results)
}

// deactivatingAlertRepo deactivates the alert between listing and the trigger write
type deactivatingAlertRepo struct {
	domain.AlertRepository
}

func (r *deactivatingAlertRepo) MarkTriggered(ctx context.Context, alertID uuid.UUID, at time.Time, n *domain.Notification) (bool, error) {
	if _, err := r.AlertRepository.SetActive(ctx, alertID, false); err != nil {
		return false, err
	}
	return r.AlertRepository.MarkTriggered(ctx, alertID, at, n)
}

func TestCheckAllAlerts_DeactivatedMidPassDoesNotNotify(t *testing.T) {
	f := newFixture(t)
	b := f.addBook(t, "Book")
	f.setPrice(t, b.ID, 10)
	a := f.addAlert(t, b.ID, domain.AlertModeBelow, 20)

	repo := &deactivatingAlertRepo{AlertRepository: f.store.Alerts()}
	svc := NewAlertService(repo, f.store.Books(), nil, Config{}, f.clock, nil, nil)

	summary, err := svc.CheckAllAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.False(t, summary.Results[0].Triggered)
	assert.Equal(t, 0, summary.TriggeredCount)
	assert.Equal(t, 0, f.store.NotificationCount(a.ID))

	stored, err := f.store.Alerts().GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
	assert.False(t, stored.Triggered)
}

func TestSetActive_ReactivationRearms(t *testing.T) {
	f := newFixture(t)
	b := f.addBook(t, "Book")
	f.setPrice(t, b.ID, 10)
	a := f.addAlert(t, b.ID, domain.AlertModeBelow, 20)
	svc := f.service(nil, Config{})

	_, err := svc.CheckAllAlerts(context.Background())
	require.NoError(t, err)

	_, err = svc.SetActive(context.Background(), a.ID, false)
	require.NoError(t, err)
	reactivated, err := svc.SetActive(context.Background(), a.ID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertStateActive, reactivated.State())

	summary, err := svc.CheckAllAlerts(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Results[0].Triggered)
	assert.Equal(t, 2, f.store.NotificationCount(a.ID))
}

func TestSetActive_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.service(nil, Config{}).SetActive(context.Background(), uuid.New(), true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
