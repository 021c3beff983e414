package services

import (
	"context"
	"sort"
	"time"

	"coffee-backend/internal/apperrors"
	"coffee-backend/internal/config"
	"coffee-backend/internal/models"
	"coffee-backend/internal/timeutil"
)

// testLedger is a shared in-memory backing store for the fake repositories.
// The payment fake mutates delivery claim pointers the same way the SQL
// transaction does, so claim, void and retry semantics hold across fakes.
type testLedger struct {
	farmers    map[int]*models.Farmer
	deliveries map[int]*models.Delivery
	payments   map[int]*models.Payment
	nextID     int
}

func newTestLedger() *testLedger {
	return &testLedger{
		farmers:    map[int]*models.Farmer{},
		deliveries: map[int]*models.Delivery{},
		payments:   map[int]*models.Payment{},
		nextID:     1,
	}
}

func (l *testLedger) id() int {
	id := l.nextID
	l.nextID++
	return id
}

func (l *testLedger) addFarmer(f models.Farmer) *models.Farmer {
	if f.ID == 0 {
		f.ID = l.id()
	}
	l.farmers[f.ID] = &f
	return &f
}

func (l *testLedger) addDelivery(d models.Delivery) *models.Delivery {
	if d.ID == 0 {
		d.ID = l.id()
	}
	if d.Region == "" {
		if f, ok := l.farmers[d.FarmerID]; ok {
			d.Region = f.WeighStation
		}
	}
	l.deliveries[d.ID] = &d
	return &d
}

func (l *testLedger) addPayment(p models.Payment) *models.Payment {
	if p.ID == 0 {
		p.ID = l.id()
	}
	l.payments[p.ID] = &p
	return &p
}

// unpaid mirrors the reconciliation condition: no claim, or a claim whose
// payment is not Completed.
func (l *testLedger) unpaid(d *models.Delivery) bool {
	if d.PaymentID == nil {
		return true
	}
	p, ok := l.payments[*d.PaymentID]
	return !ok || p.Status != models.PaymentStatusCompleted
}

type fakeFarmerStore struct {
	l   *testLedger
	err error
}

func (s *fakeFarmerStore) Create(ctx context.Context, f *models.Farmer) error {
	if s.err != nil {
		return s.err
	}
	f.ID = s.l.id()
	f.CreatedAt = time.Now()
	cp := *f
	s.l.farmers[f.ID] = &cp
	return nil
}

func (s *fakeFarmerStore) Get(ctx context.Context, id int) (*models.Farmer, error) {
	if s.err != nil {
		return nil, s.err
	}
	f, ok := s.l.farmers[id]
	if !ok {
		return nil, apperrors.NotFound("farmer %d not found", id)
	}
	cp := *f
	return &cp, nil
}

func (s *fakeFarmerStore) GetByPhone(ctx context.Context, phone string) (*models.Farmer, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, f := range s.l.farmers {
		if f.Phone == phone {
			cp := *f
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("farmer with phone %s not found", phone)
}

func (s *fakeFarmerStore) List(ctx context.Context, filter models.FarmerFilter) ([]*models.Farmer, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*models.Farmer
	for _, f := range s.l.farmers {
		if filter.WeighStation != "" && f.WeighStation != filter.WeighStation {
			continue
		}
		if filter.Season != "" && f.Season != filter.Season {
			continue
		}
		cp := *f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *fakeFarmerStore) Update(ctx context.Context, f *models.Farmer) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.l.farmers[f.ID]; !ok {
		return apperrors.NotFound("farmer %d not found", f.ID)
	}
	cp := *f
	s.l.farmers[f.ID] = &cp
	return nil
}

func (s *fakeFarmerStore) Count(ctx context.Context, filter models.FarmerFilter) (int, error) {
	farmers, err := s.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(farmers), nil
}

type fakeDeliveryStore struct {
	l   *testLedger
	err error
}

func (s *fakeDeliveryStore) matches(d *models.Delivery, filter models.DeliveryFilter) bool {
	if filter.FarmerID != 0 && d.FarmerID != filter.FarmerID {
		return false
	}
	if filter.DeliveryType != "" && d.DeliveryType != filter.DeliveryType {
		return false
	}
	if filter.Region != "" && d.Region != filter.Region {
		return false
	}
	if filter.From != nil && d.Date.Before(*filter.From) {
		return false
	}
	if filter.To != nil && d.Date.After(*filter.To) {
		return false
	}
	return true
}

func (s *fakeDeliveryStore) Create(ctx context.Context, d *models.Delivery) error {
	if s.err != nil {
		return s.err
	}
	d.ID = s.l.id()
	d.CreatedAt = time.Now()
	cp := *d
	s.l.deliveries[d.ID] = &cp
	return nil
}

func (s *fakeDeliveryStore) Get(ctx context.Context, id int) (*models.Delivery, error) {
	if s.err != nil {
		return nil, s.err
	}
	d, ok := s.l.deliveries[id]
	if !ok {
		return nil, apperrors.NotFound("delivery %d not found", id)
	}
	cp := *d
	return &cp, nil
}

func (s *fakeDeliveryStore) GetByIDs(ctx context.Context, ids []int) ([]*models.Delivery, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*models.Delivery
	for _, id := range ids {
		if d, ok := s.l.deliveries[id]; ok {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeDeliveryStore) Update(ctx context.Context, d *models.Delivery) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.l.deliveries[d.ID]; !ok {
		return apperrors.NotFound("delivery %d not found", d.ID)
	}
	cp := *d
	s.l.deliveries[d.ID] = &cp
	return nil
}

func (s *fakeDeliveryStore) List(ctx context.Context, filter models.DeliveryFilter) ([]*models.Delivery, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*models.Delivery
	for _, d := range s.l.deliveries {
		if s.matches(d, filter) {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *fakeDeliveryStore) ListUnpaid(ctx context.Context, filter models.DeliveryFilter) ([]*models.UnpaidDelivery, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*models.UnpaidDelivery
	for _, d := range s.l.deliveries {
		if !s.matches(d, filter) || !s.l.unpaid(d) {
			continue
		}
		u := &models.UnpaidDelivery{Delivery: *d}
		if f, ok := s.l.farmers[d.FarmerID]; ok {
			u.Farmer = f.Summary()
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeDeliveryStore) Count(ctx context.Context, filter models.DeliveryFilter) (int, error) {
	deliveries, err := s.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(deliveries), nil
}

type fakePaymentStore struct {
	l   *testLedger
	err error
}

// CreateWithClaim mimics the transactional claim: every listed delivery must
// be claimable or the whole call fails and nothing is written.
func (s *fakePaymentStore) CreateWithClaim(ctx context.Context, p *models.Payment, deliveryIDs []int, expectPriorPaymentID *int) error {
	if s.err != nil {
		return s.err
	}
	for _, id := range deliveryIDs {
		d, ok := s.l.deliveries[id]
		if !ok {
			return apperrors.Conflict("one or more deliveries are already covered by another payment")
		}
		if expectPriorPaymentID != nil {
			if d.PaymentID == nil || *d.PaymentID != *expectPriorPaymentID {
				return apperrors.Conflict("one or more deliveries are already covered by another payment")
			}
			continue
		}
		if d.FarmerID != p.FarmerID || !s.l.unpaid(d) {
			return apperrors.Conflict("one or more deliveries are already covered by another payment")
		}
	}

	p.ID = s.l.id()
	if p.Date.IsZero() {
		p.Date = timeutil.Now()
	}
	p.CreatedAt = time.Now()
	p.DeliveryIDs = append([]int(nil), deliveryIDs...)
	sort.Ints(p.DeliveryIDs)
	cp := *p
	s.l.payments[p.ID] = &cp
	for _, id := range deliveryIDs {
		claim := p.ID
		s.l.deliveries[id].PaymentID = &claim
	}
	return nil
}

func (s *fakePaymentStore) Get(ctx context.Context, id int) (*models.Payment, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.l.payments[id]
	if !ok {
		return nil, apperrors.NotFound("payment %d not found", id)
	}
	cp := *p
	cp.DeliveryIDs = append([]int(nil), p.DeliveryIDs...)
	return &cp, nil
}

func (s *fakePaymentStore) Void(ctx context.Context, id int, reason string, voidedBy int) (*models.Payment, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.l.payments[id]
	if !ok {
		return nil, apperrors.NotFound("payment %d not found", id)
	}
	if p.Status != models.PaymentStatusCompleted {
		return nil, apperrors.Conflict("payment is %s, only Completed payments can be voided", p.Status)
	}
	now := time.Now()
	p.Status = models.PaymentStatusFailed
	p.VoidReason = reason
	p.VoidedAt = &now
	p.VoidedByUserID = &voidedBy
	cp := *p
	return &cp, nil
}

func (s *fakePaymentStore) List(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*models.Payment
	for _, p := range s.l.payments {
		if filter.FarmerID != 0 && p.FarmerID != filter.FarmerID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.DeliveryType != "" && p.DeliveryType != filter.DeliveryType {
			continue
		}
		if filter.Region != "" {
			f, ok := s.l.farmers[p.FarmerID]
			if !ok || f.WeighStation != filter.Region {
				continue
			}
		}
		if filter.From != nil && p.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && p.Date.After(*filter.To) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

type fakeUserStore struct {
	users  map[int]*models.User
	nextID int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[int]*models.User{}, nextID: 1}
}

func (s *fakeUserStore) Create(ctx context.Context, u *models.User) error {
	if u.Role == "" {
		u.Role = models.RoleFieldAgent
	}
	u.ID = s.nextID
	s.nextID++
	u.IsActive = true
	u.CreatedAt = time.Now()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *fakeUserStore) Get(ctx context.Context, id int) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user %d not found", id)
	}
	cp := *u
	cp.BackupCodes = append([]string(nil), u.BackupCodes...)
	return &cp, nil
}

func (s *fakeUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("user with email %s not found", email)
}

func (s *fakeUserStore) List(ctx context.Context) ([]*models.User, error) {
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeUserStore) Count(ctx context.Context) (int, error) {
	return len(s.users), nil
}

func (s *fakeUserStore) Update(ctx context.Context, u *models.User) error {
	stored, ok := s.users[u.ID]
	if !ok {
		return apperrors.NotFound("user %d not found", u.ID)
	}
	if u.PasswordHash == "" {
		u.PasswordHash = stored.PasswordHash
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *fakeUserStore) SetActive(ctx context.Context, id int, active bool) error {
	u, ok := s.users[id]
	if !ok {
		return apperrors.NotFound("user %d not found", id)
	}
	u.IsActive = active
	return nil
}

func (s *fakeUserStore) SetTOTPSecret(ctx context.Context, id int, secret string) error {
	u, ok := s.users[id]
	if !ok {
		return apperrors.NotFound("user %d not found", id)
	}
	u.TOTPSecret = secret
	return nil
}

func (s *fakeUserStore) EnableTOTP(ctx context.Context, id int, backupCodes []string) error {
	u, ok := s.users[id]
	if !ok {
		return apperrors.NotFound("user %d not found", id)
	}
	now := time.Now()
	u.TOTPEnabled = true
	u.TOTPEnabledAt = &now
	u.BackupCodes = append([]string(nil), backupCodes...)
	return nil
}

func (s *fakeUserStore) DisableTOTP(ctx context.Context, id int) error {
	u, ok := s.users[id]
	if !ok {
		return apperrors.NotFound("user %d not found", id)
	}
	u.TOTPEnabled = false
	u.TOTPEnabledAt = nil
	u.TOTPSecret = ""
	u.BackupCodes = nil
	return nil
}

func (s *fakeUserStore) SetBackupCodes(ctx context.Context, id int, codes []string) error {
	u, ok := s.users[id]
	if !ok {
		return apperrors.NotFound("user %d not found", id)
	}
	u.BackupCodes = append([]string(nil), codes...)
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Payments.Currency = "KES"
	cfg.Payments.FallbackCherryPrice = 50
	cfg.Payments.FallbackParchmentPrice = 80
	cfg.Payments.VIPThreshold = 100000
	return cfg
}
