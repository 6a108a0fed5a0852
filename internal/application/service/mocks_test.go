package service

import (
	"context"
	"sync"
	"time"

	"github.com/acampov/mealpass/internal/application/port"
	"github.com/acampov/mealpass/internal/domain/entity"
)

type testLogger struct{}

func (testLogger) Info(msg string, keysAndValues ...interface{})  {}
func (testLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockVoucherRepo struct {
	createFunc         func(ctx context.Context, voucher *entity.Voucher) error
	findByAttendeeFunc func(ctx context.Context, externalID string) ([]*entity.Voucher, error)
	getByTokenFunc     func(ctx context.Context, token entity.Token) (*entity.Voucher, error)
	markUsedFunc       func(ctx context.Context, token entity.Token, redeemedAt time.Time) error
	listFunc           func(ctx context.Context, limit, offset int) ([]*entity.Voucher, error)
	countFunc          func(ctx context.Context) (int64, error)
}

func (m *mockVoucherRepo) Create(ctx context.Context, voucher *entity.Voucher) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, voucher)
	}
	voucher.ID = 1
	return nil
}

func (m *mockVoucherRepo) FindByAttendee(ctx context.Context, externalID string) ([]*entity.Voucher, error) {
	if m.findByAttendeeFunc != nil {
		return m.findByAttendeeFunc(ctx, externalID)
	}
	return nil, nil
}

func (m *mockVoucherRepo) GetByToken(ctx context.Context, token entity.Token) (*entity.Voucher, error) {
	if m.getByTokenFunc != nil {
		return m.getByTokenFunc(ctx, token)
	}
	return nil, entity.ErrTokenNotFound
}

func (m *mockVoucherRepo) MarkUsed(ctx context.Context, token entity.Token, redeemedAt time.Time) error {
	if m.markUsedFunc != nil {
		return m.markUsedFunc(ctx, token, redeemedAt)
	}
	return nil
}

func (m *mockVoucherRepo) List(ctx context.Context, limit, offset int) ([]*entity.Voucher, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockVoucherRepo) Count(ctx context.Context) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return 0, nil
}

type mockAttendeeRepo struct {
	createFunc          func(ctx context.Context, attendee *entity.Attendee) error
	getByExternalIDFunc func(ctx context.Context, externalID string) (*entity.Attendee, error)
	updateFunc          func(ctx context.Context, attendee *entity.Attendee) error
	deleteFunc          func(ctx context.Context, externalID string) error
	listFunc            func(ctx context.Context, activeOnly bool) ([]*entity.Attendee, error)
}

func (m *mockAttendeeRepo) Create(ctx context.Context, attendee *entity.Attendee) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, attendee)
	}
	attendee.ID = 1
	return nil
}

func (m *mockAttendeeRepo) GetByExternalID(ctx context.Context, externalID string) (*entity.Attendee, error) {
	if m.getByExternalIDFunc != nil {
		return m.getByExternalIDFunc(ctx, externalID)
	}
	return nil, entity.ErrAttendeeNotFound
}

func (m *mockAttendeeRepo) Update(ctx context.Context, attendee *entity.Attendee) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, attendee)
	}
	return nil
}

func (m *mockAttendeeRepo) Delete(ctx context.Context, externalID string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, externalID)
	}
	return nil
}

func (m *mockAttendeeRepo) List(ctx context.Context, activeOnly bool) ([]*entity.Attendee, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, activeOnly)
	}
	return nil, nil
}

type mockAttendeeSource struct {
	listIdentitiesFunc func(ctx context.Context, activeOnly bool) ([]entity.AttendeeIdentity, error)
	getIdentityFunc    func(ctx context.Context, externalID string) (entity.AttendeeIdentity, error)
}

func (m *mockAttendeeSource) ListIdentities(ctx context.Context, activeOnly bool) ([]entity.AttendeeIdentity, error) {
	if m.listIdentitiesFunc != nil {
		return m.listIdentitiesFunc(ctx, activeOnly)
	}
	return nil, nil
}

func (m *mockAttendeeSource) GetIdentity(ctx context.Context, externalID string) (entity.AttendeeIdentity, error) {
	if m.getIdentityFunc != nil {
		return m.getIdentityFunc(ctx, externalID)
	}
	return entity.AttendeeIdentity{}, entity.ErrAttendeeNotFound
}

// mockTxManager runs the function inline; tests that need transactional
// behavior assert on repository calls instead.
type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockSink struct {
	status port.NotificationStatus
	calls  int
	last   []*entity.Voucher
}

func (m *mockSink) SendVouchers(ctx context.Context, identity entity.AttendeeIdentity, vouchers []*entity.Voucher) port.NotificationStatus {
	m.calls++
	m.last = vouchers
	return m.status
}

// fakeVoucherStore is an in-memory VoucherRepository with the same atomicity
// contract as the real store: MarkUsed is a compare-and-set guarded by one
// mutex, so concurrent redemption tests exercise the race for real.
type fakeVoucherStore struct {
	mu      sync.Mutex
	byToken map[entity.Token]*entity.Voucher
	byMeal  map[string]map[entity.MealType]bool
	nextID  int64
}

func newFakeVoucherStore() *fakeVoucherStore {
	return &fakeVoucherStore{
		byToken: make(map[entity.Token]*entity.Voucher),
		byMeal:  make(map[string]map[entity.MealType]bool),
	}
}

func (f *fakeVoucherStore) Create(ctx context.Context, voucher *entity.Voucher) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.byToken[voucher.Token]; ok {
		return entity.ErrDuplicateVoucher
	}
	meals := f.byMeal[voucher.AttendeeExternalID]
	if meals != nil && meals[voucher.MealType] {
		return entity.ErrDuplicateVoucher
	}

	f.nextID++
	voucher.ID = f.nextID
	clone := *voucher
	f.byToken[voucher.Token] = &clone
	if meals == nil {
		meals = make(map[entity.MealType]bool)
		f.byMeal[voucher.AttendeeExternalID] = meals
	}
	meals[voucher.MealType] = true
	return nil
}

func (f *fakeVoucherStore) FindByAttendee(ctx context.Context, externalID string) ([]*entity.Voucher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*entity.Voucher
	for _, v := range f.byToken {
		if v.AttendeeExternalID == externalID {
			clone := *v
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeVoucherStore) GetByToken(ctx context.Context, token entity.Token) (*entity.Voucher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.byToken[token]
	if !ok {
		return nil, entity.ErrTokenNotFound
	}
	clone := *v
	return &clone, nil
}

func (f *fakeVoucherStore) MarkUsed(ctx context.Context, token entity.Token, redeemedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.byToken[token]
	if !ok {
		return entity.ErrTokenNotFound
	}
	if v.Used {
		return entity.ErrAlreadyUsed
	}
	v.Used = true
	at := redeemedAt
	v.RedeemedAt = &at
	return nil
}

func (f *fakeVoucherStore) List(ctx context.Context, limit, offset int) ([]*entity.Voucher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*entity.Voucher
	for _, v := range f.byToken {
		clone := *v
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeVoucherStore) Count(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.byToken)), nil
}
