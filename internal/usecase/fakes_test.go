package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"flightwatch-service/internal/domain/entity"
	"flightwatch-service/pkg/metrics"
)

func newTestMetrics() *metrics.Metrics {
	return metrics.NewMetricsWith(prometheus.NewRegistry(), "test")
}

// fakeUsageRepo is an in-memory ledger keyed by month.
type fakeUsageRepo struct {
	mu      sync.Mutex
	rows    map[string]*entity.UsageLedgerEntry
	failGet error
}

func newFakeUsageRepo() *fakeUsageRepo {
	return &fakeUsageRepo{rows: make(map[string]*entity.UsageLedgerEntry)}
}

func (r *fakeUsageRepo) GetOrCreate(ctx context.Context, month string) (*entity.UsageLedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet != nil {
		return nil, r.failGet
	}
	row, ok := r.rows[month]
	if !ok {
		row = &entity.UsageLedgerEntry{ID: uint(len(r.rows) + 1), Month: month}
		r.rows[month] = row
	}
	snapshot := *row
	return &snapshot, nil
}

func (r *fakeUsageRepo) Increment(ctx context.Context, month string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := r.rows[month]
	row.RequestCount++
	row.LastRequestAt = &at
	return nil
}

func (r *fakeUsageRepo) SetCount(ctx context.Context, month string, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[month]
	if !ok {
		row = &entity.UsageLedgerEntry{Month: month}
		r.rows[month] = row
	}
	if count > row.RequestCount {
		row.RequestCount = count
	}
	return nil
}

func (r *fakeUsageRepo) seed(month string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[month] = &entity.UsageLedgerEntry{ID: 1, Month: month, RequestCount: count}
}

// fakeFlightRepo stores flights by ID and counts writes.
type fakeFlightRepo struct {
	mu          sync.Mutex
	flights     map[uint]*entity.TrackedFlight
	nextID      uint
	updateCalls int
}

func newFakeFlightRepo() *fakeFlightRepo {
	return &fakeFlightRepo{flights: make(map[uint]*entity.TrackedFlight), nextID: 1}
}

func (r *fakeFlightRepo) add(f *entity.TrackedFlight) *entity.TrackedFlight {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.ID == 0 {
		f.ID = r.nextID
		r.nextID++
	}
	snapshot := *f
	r.flights[f.ID] = &snapshot
	return f
}

func (r *fakeFlightRepo) get(id uint) *entity.TrackedFlight {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.flights[id]; ok {
		snapshot := *f
		return &snapshot
	}
	return nil
}

func (r *fakeFlightRepo) GetByID(ctx context.Context, id uint) (*entity.TrackedFlight, error) {
	return r.get(id), nil
}

func (r *fakeFlightRepo) GetByDesignatorAndDate(ctx context.Context, carrier, number, flightDate string) (*entity.TrackedFlight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.flights {
		if f.Carrier == carrier && f.Number == number && f.FlightDate == flightDate {
			snapshot := *f
			return &snapshot, nil
		}
	}
	return nil, nil
}

func (r *fakeFlightRepo) Upsert(ctx context.Context, flight *entity.TrackedFlight) error {
	r.add(flight)
	return nil
}

func (r *fakeFlightRepo) Update(ctx context.Context, flight *entity.TrackedFlight) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	snapshot := *flight
	r.flights[flight.ID] = &snapshot
	return nil
}

func (r *fakeFlightRepo) ListActive(ctx context.Context) ([]*entity.TrackedFlight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.TrackedFlight
	for _, f := range r.flights {
		if f.Active {
			snapshot := *f
			out = append(out, &snapshot)
		}
	}
	return out, nil
}

func (r *fakeFlightRepo) Deactivate(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.flights[id]; ok {
		f.Active = false
	}
	return nil
}

func (r *fakeFlightRepo) DeactivateTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeFlightRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// fakeChangeRepo records appended transitions.
type fakeChangeRepo struct {
	mu      sync.Mutex
	records []*entity.StatusChangeRecord
}

func (r *fakeChangeRepo) Append(ctx context.Context, record *entity.StatusChangeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

func (r *fakeChangeRepo) ListByFlight(ctx context.Context, flightID uint, limit int) ([]*entity.StatusChangeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*entity.StatusChangeRecord(nil), r.records...), nil
}

// fakeSubRepo tracks subscriber keys per flight.
type fakeSubRepo struct {
	mu   sync.Mutex
	subs map[uint][]string
}

func newFakeSubRepo() *fakeSubRepo {
	return &fakeSubRepo{subs: make(map[uint][]string)}
}

func (r *fakeSubRepo) Insert(ctx context.Context, sub *entity.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range r.subs[sub.FlightID] {
		if key == sub.SubscriberKey {
			return nil
		}
	}
	r.subs[sub.FlightID] = append(r.subs[sub.FlightID], sub.SubscriberKey)
	return nil
}

func (r *fakeSubRepo) Delete(ctx context.Context, subscriberKey string, flightID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := r.subs[flightID]
	for i, key := range keys {
		if key == subscriberKey {
			r.subs[flightID] = append(keys[:i], keys[i+1:]...)
			break
		}
	}
	return nil
}

func (r *fakeSubRepo) ListSubscribers(ctx context.Context, flightID uint) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.subs[flightID]...), nil
}

func (r *fakeSubRepo) CountByFlight(ctx context.Context, flightID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.subs[flightID])), nil
}

// fakePrimary returns canned candidates and counts lookups.
type fakePrimary struct {
	mu         sync.Mutex
	candidates []entity.FlightCandidate
	err        error
	calls      int
}

func (p *fakePrimary) LookupByDesignator(ctx context.Context, carrier, number, flightDate string) ([]entity.FlightCandidate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.candidates, p.err
}

func (p *fakePrimary) LookupByRoute(ctx context.Context, origin, destination, flightDate string) ([]entity.FlightCandidate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.candidates, p.err
}

func (p *fakePrimary) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// fakeFallback returns one canned record and counts lookups.
type fakeFallback struct {
	mu    sync.Mutex
	name  string
	rec   *entity.ProviderRecord
	calls int
}

func (f *fakeFallback) Name() string { return f.name }

func (f *fakeFallback) Lookup(ctx context.Context, carrier, number string, scheduledDeparture time.Time) *entity.ProviderRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.rec == nil {
		return nil
	}
	snapshot := *f.rec
	return &snapshot
}

func (f *fakeFallback) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeNotifier records sends and can fail for selected subscribers.
type fakeNotifier struct {
	mu      sync.Mutex
	sent    []string
	failFor map[string]error
}

func (n *fakeNotifier) Send(ctx context.Context, subscriberKey, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err, ok := n.failFor[subscriberKey]; ok {
		return err
	}
	n.sent = append(n.sent, subscriberKey)
	return nil
}

// fakeReconciler records which flights were reconciled and with what options.
type fakeReconciler struct {
	mu      sync.Mutex
	results map[uint]*ReconcileResult
	seen    []uint
	opts    []ReconcileOptions
}

func newFakeReconciler() *fakeReconciler {
	return &fakeReconciler{results: make(map[uint]*ReconcileResult)}
}

func (r *fakeReconciler) Reconcile(ctx context.Context, flightID uint, opts ReconcileOptions) (*ReconcileResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, flightID)
	r.opts = append(r.opts, opts)
	return r.results[flightID], nil
}

func (r *fakeReconciler) reconciled() []uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint(nil), r.seen...)
}
