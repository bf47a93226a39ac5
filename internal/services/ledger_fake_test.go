package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/railconnect/booking-ledger/internal/config"
	"github.com/railconnect/booking-ledger/internal/database"
	"github.com/railconnect/booking-ledger/internal/models"
	"github.com/sirupsen/logrus"
)

// memState is the mutable part of the in-memory ledger. It is copied before every
// transaction and restored when the transaction fails.
type memState struct {
	availability  map[models.InventoryKey]models.SeatAvailability
	bookings      []models.Booking
	passengers    []models.Passenger
	payments      []models.Payment
	waitlist      []models.WaitlistEntry
	cancellations []models.Cancellation
	nextID        int64
}

func (s memState) clone() memState {
	c := memState{
		availability:  make(map[models.InventoryKey]models.SeatAvailability, len(s.availability)),
		bookings:      append([]models.Booking(nil), s.bookings...),
		passengers:    append([]models.Passenger(nil), s.passengers...),
		payments:      append([]models.Payment(nil), s.payments...),
		waitlist:      append([]models.WaitlistEntry(nil), s.waitlist...),
		cancellations: append([]models.Cancellation(nil), s.cancellations...),
		nextID:        s.nextID,
	}
	for k, v := range s.availability {
		c.availability[k] = v
	}
	return c
}

// memLedger is a database.LedgerStore that runs one transaction at a time, which is the
// schedule the row locks force on transactions touching the same seat counter
type memLedger struct {
	mu       sync.Mutex
	stations map[string]models.Station
	trains   map[int64]models.Train
	coaches  map[int64][]models.Coach
	state    memState

	// failPayments makes every payment insert fail with the given error
	failPayments error
	txCount      int
	// commits lists created bookings in commit order with the counter each one saw
	commits []bookingCommit
}

type bookingCommit struct {
	pnr             string
	status          models.BookingStatus
	passengers      int
	availableBefore int
}

func newMemLedger() *memLedger {
	return &memLedger{
		stations: map[string]models.Station{
			"NDLS": {ID: 1, Code: "NDLS", Name: "New Delhi", City: "Delhi", State: "Delhi"},
			"BCT":  {ID: 2, Code: "BCT", Name: "Mumbai Central", City: "Mumbai", State: "Maharashtra"},
			"BRC":  {ID: 3, Code: "BRC", Name: "Vadodara", City: "Vadodara", State: "Gujarat"},
		},
		trains: map[int64]models.Train{
			7: {ID: 7, Number: "12951", Name: "Rajdhani Express", RunningDays: "SMTWTFS", SourceStationID: 1, DestinationStationID: 2},
			8: {ID: 8, Number: "12953", Name: "August Kranti", RunningDays: "-M-W-F-", SourceStationID: 1, DestinationStationID: 2},
		},
		coaches: map[int64][]models.Coach{},
		state: memState{
			availability: map[models.InventoryKey]models.SeatAvailability{},
		},
	}
}

func (m *memLedger) addCoach(trainID int64, class, number string, seats int, fare float64) {
	m.coaches[trainID] = append(m.coaches[trainID], models.Coach{
		ID:          int64(len(m.coaches[trainID]) + 1),
		TrainID:     trainID,
		CoachClass:  class,
		CoachNumber: number,
		TotalSeats:  seats,
		BaseFare:    fare,
	})
}

func (m *memLedger) RunInTx(ctx context.Context, fn func(tx database.LedgerTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	m.txCount++
	snapshot := m.state.clone()
	if err := fn(&memTx{m: m}); err != nil {
		m.state = snapshot
		return err
	}
	m.recordCommits(snapshot)
	return nil
}

func (m *memLedger) recordCommits(before memState) {
	for _, b := range m.state.bookings[len(before.bookings):] {
		counter, ok := before.availability[b.InventoryKey()]
		available := counter.AvailableSeats
		if !ok {
			available = m.state.availability[b.InventoryKey()].TotalSeats
		}
		passengers := 0
		for _, p := range m.state.passengers {
			if p.BookingID == b.ID {
				passengers++
			}
		}
		m.commits = append(m.commits, bookingCommit{
			pnr:             b.PNR,
			status:          b.Status,
			passengers:      passengers,
			availableBefore: available,
		})
	}
}

func (m *memLedger) commitLog() []bookingCommit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bookingCommit(nil), m.commits...)
}

func (m *memLedger) counter(key models.InventoryKey) (models.SeatAvailability, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.state.availability[key]
	return a, ok
}

func (m *memLedger) snapshot() memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

func (m *memLedger) bookingByPNR(pnr string) (models.Booking, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.state.bookings {
		if b.PNR == pnr {
			return b, true
		}
	}
	return models.Booking{}, false
}

// BookingReader and WaitlistReader

func (m *memLedger) GetViewByPNR(ctx context.Context, pnr string) (*models.BookingView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.state.bookings {
		if b.PNR == pnr {
			return m.viewLocked(b), nil
		}
	}
	return nil, nil
}

func (m *memLedger) viewLocked(b models.Booking) *models.BookingView {
	view := &models.BookingView{Booking: b}
	train := m.trains[b.TrainID]
	view.TrainNumber, view.TrainName = train.Number, train.Name
	for _, st := range m.stations {
		if st.ID == b.FromStationID {
			view.FromCode, view.FromStation = st.Code, st.Name
		}
		if st.ID == b.ToStationID {
			view.ToCode, view.ToStation = st.Code, st.Name
		}
	}
	for _, p := range m.state.payments {
		if p.BookingID == b.ID {
			status, method, txn := p.Status, p.Method, p.TransactionID
			view.PaymentStatus, view.PaymentMethod, view.TransactionID = &status, &method, &txn
		}
	}
	for _, p := range m.state.passengers {
		if p.BookingID == b.ID {
			view.PassengerCount++
		}
	}
	return view
}

func (m *memLedger) ListPassengers(ctx context.Context, bookingID int64) ([]models.Passenger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{m: m}).PassengersByBooking(bookingID)
}

func (m *memLedger) ListByUser(ctx context.Context, userID uuid.UUID, statuses []models.BookingStatus) ([]models.BookingView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	views := []models.BookingView{}
	for i := len(m.state.bookings) - 1; i >= 0; i-- {
		b := m.state.bookings[i]
		if b.UserID != userID {
			continue
		}
		if len(statuses) > 0 && !containsStatus(statuses, b.Status) {
			continue
		}
		views = append(views, *m.viewLocked(b))
	}
	return views, nil
}

func containsStatus(statuses []models.BookingStatus, status models.BookingStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (m *memLedger) GetInfo(ctx context.Context, bookingID int64) (*models.WaitlistInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var entry *models.WaitlistEntry
	for i := range m.state.waitlist {
		if m.state.waitlist[i].BookingID == bookingID {
			entry = &m.state.waitlist[i]
		}
	}
	if entry == nil {
		return nil, nil
	}
	own := m.findBookingLocked(bookingID)
	position := 1
	for _, w := range m.state.waitlist {
		other := m.findBookingLocked(w.BookingID)
		if other.InventoryKey() == own.InventoryKey() && other.Status == models.BookingStatusWaitlist &&
			w.WaitlistNumber < entry.WaitlistNumber {
			position++
		}
	}
	return &models.WaitlistInfo{WaitlistNumber: entry.WaitlistNumber, CurrentPosition: position}, nil
}

func (m *memLedger) findBookingLocked(id int64) models.Booking {
	for _, b := range m.state.bookings {
		if b.ID == id {
			return b
		}
	}
	return models.Booking{}
}

type memTx struct {
	m *memLedger
}

func (t *memTx) nextID() int64 {
	t.m.state.nextID++
	return t.m.state.nextID
}

func (t *memTx) TrainByID(trainID int64) (*models.Train, error) {
	train, ok := t.m.trains[trainID]
	if !ok {
		return nil, nil
	}
	return &train, nil
}

func (t *memTx) StationByCode(code string) (*models.Station, error) {
	st, ok := t.m.stations[code]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (t *memTx) CoachesForClass(trainID int64, coachClass string) ([]models.Coach, error) {
	var coaches []models.Coach
	for _, c := range t.m.coaches[trainID] {
		if c.CoachClass == coachClass {
			coaches = append(coaches, c)
		}
	}
	sort.Slice(coaches, func(i, j int) bool { return coaches[i].CoachNumber < coaches[j].CoachNumber })
	return coaches, nil
}

func (t *memTx) LockSeatAvailability(key models.InventoryKey) (*models.SeatAvailability, error) {
	a, ok := t.m.state.availability[key]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (t *memTx) InsertSeatAvailability(key models.InventoryKey, totalSeats int) error {
	if _, ok := t.m.state.availability[key]; ok {
		return nil
	}
	t.m.state.availability[key] = models.SeatAvailability{
		TrainID:        key.TrainID,
		JourneyDate:    key.JourneyDate,
		CoachClass:     key.CoachClass,
		AvailableSeats: totalSeats,
		TotalSeats:     totalSeats,
	}
	return nil
}

func (t *memTx) AdjustSeatAvailability(key models.InventoryKey, delta int) (bool, error) {
	a, ok := t.m.state.availability[key]
	if !ok {
		return false, nil
	}
	next := a.AvailableSeats + delta
	if next < 0 || next > a.TotalSeats {
		return false, nil
	}
	a.AvailableSeats = next
	t.m.state.availability[key] = a
	return true, nil
}

func (t *memTx) CountWaitlist(key models.InventoryKey) (int, error) {
	count := 0
	for _, w := range t.m.state.waitlist {
		b := t.m.findBookingLocked(w.BookingID)
		if b.TrainID == key.TrainID && b.JourneyDate == key.JourneyDate && w.CoachClass == key.CoachClass {
			count++
		}
	}
	return count, nil
}

func (t *memTx) InsertWaitlistEntry(entry *models.WaitlistEntry) error {
	entry.ID = t.nextID()
	t.m.state.waitlist = append(t.m.state.waitlist, *entry)
	return nil
}

func (t *memTx) InsertBooking(booking *models.Booking) error {
	for _, b := range t.m.state.bookings {
		if b.PNR == booking.PNR {
			return models.NewConflictError("pnr %s already exists", booking.PNR)
		}
	}
	booking.ID = t.nextID()
	booking.BookedAt = time.Now()
	t.m.state.bookings = append(t.m.state.bookings, *booking)
	return nil
}

func (t *memTx) InsertPassenger(passenger *models.Passenger) error {
	passenger.ID = t.nextID()
	t.m.state.passengers = append(t.m.state.passengers, *passenger)
	return nil
}

func (t *memTx) InsertPayment(payment *models.Payment) error {
	if t.m.failPayments != nil {
		return t.m.failPayments
	}
	for _, p := range t.m.state.payments {
		if p.TransactionID == payment.TransactionID {
			return models.NewConflictError("transaction id %s already exists", payment.TransactionID)
		}
	}
	payment.ID = t.nextID()
	t.m.state.payments = append(t.m.state.payments, *payment)
	return nil
}

func (t *memTx) LockBookingForUser(pnr string, userID uuid.UUID) (*models.Booking, error) {
	for _, b := range t.m.state.bookings {
		if b.PNR == pnr && b.UserID == userID {
			return &b, nil
		}
	}
	return nil, nil
}

func (t *memTx) PassengersByBooking(bookingID int64) ([]models.Passenger, error) {
	passengers := []models.Passenger{}
	for _, p := range t.m.state.passengers {
		if p.BookingID == bookingID {
			passengers = append(passengers, p)
		}
	}
	return passengers, nil
}

func (t *memTx) PaymentByBooking(bookingID int64) (*models.Payment, error) {
	for _, p := range t.m.state.payments {
		if p.BookingID == bookingID {
			return &p, nil
		}
	}
	return nil, nil
}

func (t *memTx) CompletePayment(bookingID int64, method string, paidAt time.Time) error {
	for i := range t.m.state.payments {
		if t.m.state.payments[i].BookingID == bookingID {
			t.m.state.payments[i].Status = models.PaymentStatusCompleted
			t.m.state.payments[i].Method = method
			t.m.state.payments[i].PaidAt = &paidAt
		}
	}
	return nil
}

func (t *memTx) HeldSeats(key models.InventoryKey) ([]database.HeldSeat, error) {
	var held []database.HeldSeat
	for _, p := range t.m.state.passengers {
		if p.SeatNumber == nil {
			continue
		}
		b := t.m.findBookingLocked(p.BookingID)
		if b.InventoryKey() != key || b.Status == models.BookingStatusCancelled {
			continue
		}
		held = append(held, database.HeldSeat{CoachNumber: *p.CoachNumber, SeatNumber: *p.SeatNumber})
	}
	return held, nil
}

func (t *memTx) AssignSeat(passengerID int64, seatNumber, coachNumber string) error {
	for i := range t.m.state.passengers {
		if t.m.state.passengers[i].ID == passengerID {
			seat, coach := seatNumber, coachNumber
			t.m.state.passengers[i].SeatNumber = &seat
			t.m.state.passengers[i].CoachNumber = &coach
		}
	}
	return nil
}

func (t *memTx) UpdateBookingStatus(bookingID int64, status models.BookingStatus) error {
	for i := range t.m.state.bookings {
		if t.m.state.bookings[i].ID == bookingID {
			t.m.state.bookings[i].Status = status
		}
	}
	for i := range t.m.state.passengers {
		if t.m.state.passengers[i].BookingID == bookingID {
			t.m.state.passengers[i].Status = status
		}
	}
	return nil
}

func (t *memTx) InsertCancellation(cancellation *models.Cancellation) error {
	for _, c := range t.m.state.cancellations {
		if c.BookingID == cancellation.BookingID {
			return models.NewConflictError("booking %d is already cancelled", cancellation.BookingID)
		}
	}
	cancellation.ID = t.nextID()
	cancellation.CancelledAt = time.Now()
	t.m.state.cancellations = append(t.m.state.cancellations, *cancellation)
	return nil
}

// scriptedIDs hands out the given PNRs and transaction ids in order, then falls back to
// random ones
type scriptedIDs struct {
	mu     sync.Mutex
	pnrs   []string
	txns   []string
	random *RandomIDGenerator
}

func (s *scriptedIDs) NewPNR() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pnrs) == 0 {
		return s.random.NewPNR()
	}
	next := s.pnrs[0]
	s.pnrs = s.pnrs[1:]
	return next, nil
}

func (s *scriptedIDs) NewTransactionID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.txns) == 0 {
		return s.random.NewTransactionID()
	}
	next := s.txns[0]
	s.txns = s.txns[1:]
	return next, nil
}

// uniqueIDs never repeats a PNR, keeping concurrency tests independent of the clock
type uniqueIDs struct {
	mu sync.Mutex
	n  int
	RandomIDGenerator
}

func (u *uniqueIDs) NewPNR() (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.n++
	return uuid.NewString()[:8] + string(rune('A'+u.n%26)), nil
}

type recordingCache struct {
	mu          sync.Mutex
	entries     map[string]*models.BookingDetails
	invalidated []string
	ctxErrs     []error
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: map[string]*models.BookingDetails{}}
}

func (c *recordingCache) Get(ctx context.Context, pnr string) (*models.BookingDetails, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.entries[pnr]
	return d, ok
}

func (c *recordingCache) Set(ctx context.Context, pnr string, details *models.BookingDetails) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[pnr] = details
}

func (c *recordingCache) Invalidate(ctx context.Context, pnr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, pnr)
	c.invalidated = append(c.invalidated, pnr)
	c.ctxErrs = append(c.ctxErrs, ctx.Err())
}

// invalidations counts deletes of pnr and returns the context errors seen by all deletes
func (c *recordingCache) invalidations(pnr string) (int, []error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, p := range c.invalidated {
		if p == pnr {
			n++
		}
	}
	return n, append([]error(nil), c.ctxErrs...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.BookingEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := event.(models.BookingEvent); ok {
		p.events = append(p.events, e)
	}
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

var errStorage = errors.New("storage unavailable")

func testLedgerConfig() config.LedgerConfig {
	return config.LedgerConfig{
		DefaultCapacity:  100,
		CancellationRate: 0.25,
		IDMaxAttempts:    10,
		TxTimeout:        5 * time.Second,
		WarmupDays:       7,
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// ledgerFixture wires every ledger service to one in-memory store
type ledgerFixture struct {
	store        *memLedger
	cache        *recordingCache
	events       *recordingPublisher
	bookings     *BookingService
	payments     *PaymentService
	cancellation *CancellationService
}

func newLedgerFixture(ids IDGenerator, cfg config.LedgerConfig) *ledgerFixture {
	store := newMemLedger()
	cache := newRecordingCache()
	events := &recordingPublisher{}
	logger := quietLogger()
	if ids == nil {
		ids = &uniqueIDs{}
	}
	return &ledgerFixture{
		store:        store,
		cache:        cache,
		events:       events,
		bookings:     NewBookingService(store, store, store, ids, cache, events, cfg, logger),
		payments:     NewPaymentService(store, cache, events, cfg, logger),
		cancellation: NewCancellationService(store, cache, events, cfg, logger),
	}
}

func bookingRequest(class string, passengers int) *models.CreateBookingRequest {
	req := &models.CreateBookingRequest{
		TrainID:     7,
		JourneyDate: "2025-03-14",
		FromStation: "NDLS",
		ToStation:   "BCT",
		CoachClass:  class,
	}
	names := []string{"Asha", "Ravi", "Meera", "Kabir", "Divya", "Arjun"}
	for i := 0; i < passengers; i++ {
		req.Passengers = append(req.Passengers, models.PassengerInput{
			Name:   names[i%len(names)],
			Age:    30 + i,
			Gender: "F",
		})
	}
	return req
}
