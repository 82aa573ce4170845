package recharge

import (
	"context"
	"errors"
	"testing"

	"purse/internal/models"
	"purse/internal/repositories"
	"purse/internal/services/provider"
	"purse/internal/services/wallet"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory fakes. The recharge repository shares the wallet repository so
// ExecuteInTransaction can hand both out bound to the same state, with a
// snapshot restore standing in for rollback.

type fakeWalletRepo struct {
	wallets map[uint]*models.Wallet
	entries []models.LedgerEntry
	nextID  uint
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{wallets: make(map[uint]*models.Wallet), nextID: 1}
}

func (f *fakeWalletRepo) addWallet(w models.Wallet) *models.Wallet {
	w.ID = f.nextID
	f.nextID++
	f.wallets[w.ID] = &w
	return &w
}

func (f *fakeWalletRepo) Create(w *models.Wallet) error {
	w.ID = f.nextID
	f.nextID++
	cp := *w
	f.wallets[w.ID] = &cp
	return nil
}

func (f *fakeWalletRepo) GetByID(id uint, includeDeleted bool) (*models.Wallet, error) {
	w, ok := f.wallets[id]
	if !ok || (w.Deleted && !includeDeleted) {
		return nil, repositories.ErrWalletNotFound
	}
	cp := *w
	return &cp, nil
}

func (f *fakeWalletRepo) GetByUserID(userID uint, includeDeleted bool) (*models.Wallet, error) {
	for _, w := range f.wallets {
		if w.UserID == userID && (includeDeleted || !w.Deleted) {
			cp := *w
			return &cp, nil
		}
	}
	return nil, repositories.ErrWalletNotFound
}

func (f *fakeWalletRepo) GetByCustomerEmail(email, currency string) (*models.Wallet, error) {
	return nil, repositories.ErrWalletNotFound
}

func (f *fakeWalletRepo) GetByIDForUpdate(id uint) (*models.Wallet, error) {
	return f.GetByID(id, false)
}

func (f *fakeWalletRepo) Update(w *models.Wallet) error {
	if _, ok := f.wallets[w.ID]; !ok {
		return repositories.ErrWalletNotFound
	}
	cp := *w
	f.wallets[w.ID] = &cp
	return nil
}

func (f *fakeWalletRepo) SoftDelete(id uint) error {
	w, ok := f.wallets[id]
	if !ok {
		return repositories.ErrWalletNotFound
	}
	w.Deleted = true
	w.IsActive = false
	return nil
}

func (f *fakeWalletRepo) AppendEntry(entry *models.LedgerEntry) error {
	if !entry.SignMatchesType() {
		return repositories.ErrInvalidEntry
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeWalletRepo) GetEntryByID(walletID uint, entryID string, includeDeleted bool) (*models.LedgerEntry, error) {
	for i := range f.entries {
		e := f.entries[i]
		if e.WalletID == walletID && e.ID == entryID && (includeDeleted || !e.Deleted) {
			return &e, nil
		}
	}
	return nil, repositories.ErrEntryNotFound
}

func (f *fakeWalletRepo) EntryHistory(ctx context.Context, walletID uint, limit, offset int) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].WalletID == walletID && !f.entries[i].Deleted {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

func (f *fakeWalletRepo) LatestEntry(walletID uint) (*models.LedgerEntry, error) {
	for i := len(f.entries) - 1; i >= 0; i-- {
		e := f.entries[i]
		if e.WalletID == walletID && !e.Deleted {
			return &e, nil
		}
	}
	return nil, repositories.ErrEntryNotFound
}

func (f *fakeWalletRepo) SumEntryAmounts(walletID uint, includeDeleted bool) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range f.entries {
		if e.WalletID == walletID && (includeDeleted || !e.Deleted) {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

func (f *fakeWalletRepo) CountEntries(walletID uint, includeDeleted bool) (int64, error) {
	var n int64
	for _, e := range f.entries {
		if e.WalletID == walletID && (includeDeleted || !e.Deleted) {
			n++
		}
	}
	return n, nil
}

func (f *fakeWalletRepo) SoftDeleteEntry(walletID uint, entryID string) error {
	for i := range f.entries {
		if f.entries[i].WalletID == walletID && f.entries[i].ID == entryID {
			f.entries[i].Deleted = true
			return nil
		}
	}
	return repositories.ErrEntryNotFound
}

func (f *fakeWalletRepo) ExecuteInTransaction(fn func(repositories.WalletRepository) error) error {
	restore := f.snapshot()
	if err := fn(f); err != nil {
		restore()
		return err
	}
	return nil
}

func (f *fakeWalletRepo) snapshot() func() {
	wallets := make(map[uint]*models.Wallet, len(f.wallets))
	for id, w := range f.wallets {
		cp := *w
		wallets[id] = &cp
	}
	entries := append([]models.LedgerEntry(nil), f.entries...)
	return func() {
		f.wallets = wallets
		f.entries = entries
	}
}

type fakeRechargeRepo struct {
	recharges map[string]*models.WalletRecharge
	payments  *fakePaymentRepo
	wallets   *fakeWalletRepo
}

func newFakeRechargeRepo(payments *fakePaymentRepo, wallets *fakeWalletRepo) *fakeRechargeRepo {
	return &fakeRechargeRepo{
		recharges: make(map[string]*models.WalletRecharge),
		payments:  payments,
		wallets:   wallets,
	}
}

func (f *fakeRechargeRepo) Create(r *models.WalletRecharge) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = models.RechargeInitiated
	}
	cp := *r
	f.recharges[r.ID] = &cp
	return nil
}

func (f *fakeRechargeRepo) GetByID(id string) (*models.WalletRecharge, error) {
	r, ok := f.recharges[id]
	if !ok {
		return nil, repositories.ErrRechargeNotFound
	}
	cp := *r
	if cp.PaymentID != nil {
		if p, ok := f.payments.byID(*cp.PaymentID); ok {
			cp.Payment = p
		}
	}
	return &cp, nil
}

func (f *fakeRechargeRepo) GetByIDForUpdate(id string) (*models.WalletRecharge, error) {
	r, ok := f.recharges[id]
	if !ok {
		return nil, repositories.ErrRechargeNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRechargeRepo) Update(r *models.WalletRecharge) error {
	if _, ok := f.recharges[r.ID]; !ok {
		return repositories.ErrRechargeNotFound
	}
	cp := *r
	f.recharges[r.ID] = &cp
	return nil
}

func (f *fakeRechargeRepo) ListByWallet(walletID uint, limit, offset int) ([]models.WalletRecharge, error) {
	var out []models.WalletRecharge
	for _, r := range f.recharges {
		if r.WalletID == walletID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRechargeRepo) ExecuteInTransaction(fn func(repositories.RechargeRepository, repositories.WalletRepository) error) error {
	restoreWallets := f.wallets.snapshot()
	recharges := make(map[string]*models.WalletRecharge, len(f.recharges))
	for id, r := range f.recharges {
		cp := *r
		recharges[id] = &cp
	}

	if err := fn(f, f.wallets); err != nil {
		restoreWallets()
		f.recharges = recharges
		return err
	}
	return nil
}

type fakePaymentRepo struct {
	payments  map[string]*models.Payment
	nextID    uint
	updateErr error
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[string]*models.Payment), nextID: 1}
}

func (f *fakePaymentRepo) byID(id uint) (*models.Payment, bool) {
	for _, p := range f.payments {
		if p.ID == id {
			cp := *p
			return &cp, true
		}
	}
	return nil, false
}

func (f *fakePaymentRepo) GetOrCreateByToken(payment *models.Payment) (*models.Payment, bool, error) {
	if existing, ok := f.payments[payment.Token]; ok {
		cp := *existing
		return &cp, false, nil
	}
	payment.ID = f.nextID
	f.nextID++
	if payment.Status == "" {
		payment.Status = models.PaymentPending
	}
	cp := *payment
	f.payments[payment.Token] = &cp
	return payment, true, nil
}

func (f *fakePaymentRepo) GetByToken(token string) (*models.Payment, error) {
	p, ok := f.payments[token]
	if !ok {
		return nil, repositories.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePaymentRepo) Update(payment *models.Payment) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.payments[payment.Token]; !ok {
		return repositories.ErrPaymentNotFound
	}
	cp := *payment
	f.payments[payment.Token] = &cp
	return nil
}

type fakeUserRepo struct {
	users map[uint]*models.User
}

func (f *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) Create(u *models.User) error {
	f.users[u.ID] = u
	return nil
}

// fakeProvider scripts the processor's behavior per call. processHook, when
// set, runs once inside the next Process call, which lets a test interleave
// another operation while a settlement is in flight at the provider.
type fakeProvider struct {
	createOrderErr error
	toConfirm      bool
	result         provider.Result
	resultErr      error
	processHook    func()

	confirmCalls int
	processCalls int
}

func (f *fakeProvider) CreateOrder(ctx context.Context, payment *models.Payment) error {
	if f.createOrderErr != nil {
		return f.createOrderErr
	}
	if payment.ProviderRef == "" {
		payment.ProviderRef = "pi_" + payment.Token
	}
	payment.ToConfirm = f.toConfirm
	return nil
}

func (f *fakeProvider) Confirm(ctx context.Context, payment *models.Payment) (provider.Result, error) {
	f.confirmCalls++
	return f.result, f.resultErr
}

func (f *fakeProvider) Process(ctx context.Context, payment *models.Payment) (provider.Result, error) {
	f.processCalls++
	if hook := f.processHook; hook != nil {
		f.processHook = nil
		hook()
	}
	return f.result, f.resultErr
}

type fixture struct {
	svc       Service
	wallets   *fakeWalletRepo
	recharges *fakeRechargeRepo
	payments  *fakePaymentRepo
	provider  *fakeProvider
	wallet    *models.Wallet
	user      *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	wallets := newFakeWalletRepo()
	payments := newFakePaymentRepo()
	recharges := newFakeRechargeRepo(payments, wallets)
	prov := &fakeProvider{result: provider.Result{Success: true}}

	user := &models.User{
		ID:        1,
		Email:     "buyer@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		DefaultBillingAddress: &models.Address{
			FirstName:      "Ada",
			LastName:       "Lovelace",
			StreetAddress1: "12 Main St",
			City:           "Springfield",
			PostalCode:     "12345",
			CountryCode:    "US",
		},
	}
	users := &fakeUserRepo{users: map[uint]*models.User{user.ID: user}}

	w := wallets.addWallet(models.Wallet{UserID: user.ID, Currency: "USD", IsActive: true})

	walletSvc := wallet.NewService(wallets, nopCache{}, nil)
	svc := NewService(recharges, wallets, payments, users, walletSvc, prov, nil)

	return &fixture{
		svc:       svc,
		wallets:   wallets,
		recharges: recharges,
		payments:  payments,
		provider:  prov,
		wallet:    w,
		user:      user,
	}
}

type nopCache struct{}

func (nopCache) GetWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	return nil, repositories.ErrWalletNotFound
}
func (nopCache) SetWallet(ctx context.Context, w *models.Wallet) error   { return nil }
func (nopCache) InvalidateWallet(ctx context.Context, userID uint) error { return nil }

func (fx *fixture) createWithPayment(t *testing.T, amount string) *models.WalletRecharge {
	t.Helper()
	ctx := context.Background()

	r, err := fx.svc.Create(ctx, fx.wallet.ID)
	require.NoError(t, err)

	r, _, err = fx.svc.CreatePayment(ctx, r.ID, "stripe", decimal.RequireFromString(amount), "203.0.113.7")
	require.NoError(t, err)
	return r
}

func TestCreate(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	r, err := fx.svc.Create(ctx, fx.wallet.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, models.RechargeInitiated, r.Status)
	assert.False(t, r.Amount.Valid)

	_, err = fx.svc.Create(ctx, 999)
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestCreatePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("attaches a payment and advances the status", func(t *testing.T) {
		fx := newFixture(t)
		r, err := fx.svc.Create(ctx, fx.wallet.ID)
		require.NoError(t, err)

		r, payment, err := fx.svc.CreatePayment(ctx, r.ID, "stripe", decimal.RequireFromString("25"), "203.0.113.7")
		require.NoError(t, err)

		assert.Equal(t, models.RechargePaymentCreated, r.Status)
		require.True(t, r.Amount.Valid)
		assert.True(t, r.Amount.Decimal.Equal(decimal.RequireFromString("25")))

		// Token is the recharge id; billing comes from the default address.
		assert.Equal(t, r.ID, payment.Token)
		assert.Equal(t, "stripe", payment.Gateway)
		assert.Equal(t, "USD", payment.Currency)
		assert.Equal(t, "buyer@example.com", payment.BillingEmail)
		assert.Equal(t, "12 Main St", payment.BillingAddress1)
		assert.Equal(t, "203.0.113.7", payment.CustomerIP)
		assert.NotEmpty(t, payment.ProviderRef)
	})

	t.Run("falls back to the bare name without a billing address", func(t *testing.T) {
		fx := newFixture(t)
		fx.user.DefaultBillingAddress = nil

		r, err := fx.svc.Create(ctx, fx.wallet.ID)
		require.NoError(t, err)

		_, payment, err := fx.svc.CreatePayment(ctx, r.ID, "stripe", decimal.RequireFromString("25"), "")
		require.NoError(t, err)
		assert.Equal(t, "Ada", payment.BillingFirstName)
		assert.Equal(t, "Lovelace", payment.BillingLastName)
		assert.Empty(t, payment.BillingAddress1)
	})

	t.Run("retry with the same amount reuses the payment", func(t *testing.T) {
		fx := newFixture(t)
		r := fx.createWithPayment(t, "25")

		_, payment, err := fx.svc.CreatePayment(ctx, r.ID, "stripe", decimal.RequireFromString("25"), "")
		require.NoError(t, err)
		assert.Equal(t, r.ID, payment.Token)
		assert.Len(t, fx.payments.payments, 1)
	})

	t.Run("retry with a different amount is rejected", func(t *testing.T) {
		fx := newFixture(t)
		r := fx.createWithPayment(t, "25")

		_, _, err := fx.svc.CreatePayment(ctx, r.ID, "stripe", decimal.RequireFromString("30"), "")
		assert.ErrorIs(t, err, ErrAmountMismatch)
	})

	t.Run("provider failure keeps the recharge retryable", func(t *testing.T) {
		fx := newFixture(t)
		fx.provider.createOrderErr = errors.New("stripe: connection reset")

		r, err := fx.svc.Create(ctx, fx.wallet.ID)
		require.NoError(t, err)

		_, _, err = fx.svc.CreatePayment(ctx, r.ID, "stripe", decimal.RequireFromString("25"), "")
		var gwErr *GatewayError
		require.ErrorAs(t, err, &gwErr)

		// Status untouched; a later retry can still attach a payment.
		stored, err := fx.svc.Get(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RechargeInitiated, stored.Status)

		fx.provider.createOrderErr = nil
		_, _, err = fx.svc.CreatePayment(ctx, r.ID, "stripe", decimal.RequireFromString("25"), "")
		assert.NoError(t, err)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		fx := newFixture(t)
		r, err := fx.svc.Create(ctx, fx.wallet.ID)
		require.NoError(t, err)

		_, _, err = fx.svc.CreatePayment(ctx, r.ID, "stripe", decimal.Zero, "")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("terminal recharge rejects new payments", func(t *testing.T) {
		fx := newFixture(t)
		r := fx.createWithPayment(t, "25")
		_, err := fx.svc.Complete(ctx, r.ID)
		require.NoError(t, err)

		_, _, err = fx.svc.CreatePayment(ctx, r.ID, "stripe", decimal.RequireFromString("25"), "")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestComplete(t *testing.T) {
	ctx := context.Background()

	t.Run("deposits the amount and marks the recharge successful", func(t *testing.T) {
		fx := newFixture(t)
		r := fx.createWithPayment(t, "25")

		r, err := fx.svc.Complete(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RechargeSuccessful, r.Status)
		assert.Equal(t, 1, fx.provider.processCalls)

		stored, _ := fx.wallets.GetByID(fx.wallet.ID, false)
		assert.True(t, stored.Balance.Equal(decimal.RequireFromString("25")))

		entry, err := fx.wallets.LatestEntry(fx.wallet.ID)
		require.NoError(t, err)
		assert.Equal(t, models.LedgerEntryCredit, entry.Type)
		assert.Equal(t, wallet.SourceApp, entry.Source)
		assert.Equal(t, wallet.ReasonRecharge, entry.Reason)
		assert.Contains(t, entry.Description, "Paid using stripe")

		payment, err := fx.payments.GetByToken(r.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentConfirmed, payment.Status)
	})

	t.Run("payments pending confirmation go through Confirm", func(t *testing.T) {
		fx := newFixture(t)
		fx.provider.toConfirm = true
		r := fx.createWithPayment(t, "25")

		_, err := fx.svc.Complete(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, fx.provider.confirmCalls)
		assert.Zero(t, fx.provider.processCalls)
	})

	t.Run("provider decline fails the recharge without a deposit", func(t *testing.T) {
		fx := newFixture(t)
		r := fx.createWithPayment(t, "25")
		fx.provider.result = provider.Result{Success: false, Error: "Your card was declined."}

		r, err := fx.svc.Complete(ctx, r.ID)
		var gwErr *GatewayError
		require.ErrorAs(t, err, &gwErr)
		assert.Equal(t, "Your card was declined.", gwErr.Message)
		assert.Equal(t, models.RechargeFailed, r.Status)

		stored, _ := fx.wallets.GetByID(fx.wallet.ID, false)
		assert.True(t, stored.Balance.IsZero())
		count, _ := fx.wallets.CountEntries(fx.wallet.ID, true)
		assert.Zero(t, count)

		payment, err := fx.payments.GetByToken(r.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentFailed, payment.Status)
	})

	t.Run("transport error is treated as a decline", func(t *testing.T) {
		fx := newFixture(t)
		r := fx.createWithPayment(t, "25")
		fx.provider.resultErr = errors.New("stripe: connection reset")

		r, err := fx.svc.Complete(ctx, r.ID)
		var gwErr *GatewayError
		require.ErrorAs(t, err, &gwErr)
		assert.Equal(t, models.RechargeFailed, r.Status)
	})

	t.Run("recharge without a payment cannot complete", func(t *testing.T) {
		fx := newFixture(t)
		r, err := fx.svc.Create(ctx, fx.wallet.ID)
		require.NoError(t, err)

		_, err = fx.svc.Complete(ctx, r.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("overlapping completes settle exactly once", func(t *testing.T) {
		fx := newFixture(t)
		r := fx.createWithPayment(t, "25")

		// While the first Complete is waiting on the provider, a second
		// Complete runs start to finish. The first call passed the status
		// gate before the second settled, so only the locked re-read inside
		// the settlement transaction can stop it.
		var overlapErr error
		fx.provider.processHook = func() {
			_, overlapErr = fx.svc.Complete(ctx, r.ID)
		}

		_, err := fx.svc.Complete(ctx, r.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		require.NoError(t, overlapErr)

		stored, _ := fx.wallets.GetByID(fx.wallet.ID, false)
		assert.True(t, stored.Balance.Equal(decimal.RequireFromString("25")))
		count, _ := fx.wallets.CountEntries(fx.wallet.ID, true)
		assert.Equal(t, int64(1), count)

		final, err := fx.svc.Get(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RechargeSuccessful, final.Status)
	})

	t.Run("payment status update failure does not undo settlement", func(t *testing.T) {
		fx := newFixture(t)
		r := fx.createWithPayment(t, "25")
		fx.payments.updateErr = errors.New("connection reset")

		r, err := fx.svc.Complete(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RechargeSuccessful, r.Status)

		stored, _ := fx.wallets.GetByID(fx.wallet.ID, false)
		assert.True(t, stored.Balance.Equal(decimal.RequireFromString("25")))

		// The payment row is stale but the money moved.
		payment, err := fx.payments.GetByToken(r.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentPending, payment.Status)
	})

	t.Run("completing twice is rejected", func(t *testing.T) {
		fx := newFixture(t)
		r := fx.createWithPayment(t, "25")

		_, err := fx.svc.Complete(ctx, r.ID)
		require.NoError(t, err)

		_, err = fx.svc.Complete(ctx, r.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)

		// Exactly one deposit happened.
		count, _ := fx.wallets.CountEntries(fx.wallet.ID, true)
		assert.Equal(t, int64(1), count)
	})
}

func TestMarkAbandoned(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	r, err := fx.svc.Create(ctx, fx.wallet.ID)
	require.NoError(t, err)

	require.NoError(t, fx.svc.MarkAbandoned(ctx, r.ID))

	stored, err := fx.svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RechargeAbandoned, stored.Status)

	// Terminal states stay terminal.
	assert.ErrorIs(t, fx.svc.MarkAbandoned(ctx, r.ID), ErrInvalidTransition)
}
