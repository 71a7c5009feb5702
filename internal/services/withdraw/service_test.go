package withdraw

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fossa/internal/boltz"
	"fossa/internal/invoice"
	"fossa/internal/lightning"
	"fossa/internal/lnurl"
	"fossa/internal/models"
	"fossa/internal/repositories"
	"fossa/internal/services/ledger"
	"fossa/internal/services/payload"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo is an in-memory PaymentRepository with real compare-and-set
// semantics, so the claim flow is exercised the same way the database
// enforces it.
type memRepo struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
}

func newMemRepo() *memRepo {
	return &memRepo{payments: make(map[string]*models.Payment)}
}

func (r *memRepo) Create(_ context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.ID]; ok {
		return repositories.ErrDuplicatePayment
	}
	cp := *p
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.payments[p.ID] = &cp
	return nil
}

func (r *memRepo) Get(_ context.Context, id string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, repositories.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memRepo) GetBySwapID(_ context.Context, swapID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.SwapID == swapID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrPaymentNotFound
}

func (r *memRepo) ListByDevices(_ context.Context, ids []string) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Payment
	for _, p := range r.payments {
		for _, id := range ids {
			if p.DeviceID == id {
				out = append(out, *p)
			}
		}
	}
	return out, nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.payments, id)
	return nil
}

func (r *memRepo) CompareAndSetStatus(_ context.Context, id string, from, to models.PaymentStatus, updates map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	if v, ok := updates["payment_hash"]; ok {
		p.PaymentHash = v.(string)
	}
	if v, ok := updates["swap_id"]; ok {
		p.SwapID = v.(string)
	}
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *memRepo) ResetStale(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.payments {
		if p.InFlight() && p.UpdatedAt.Before(cutoff) {
			p.Status = models.StatusUnclaimed
			p.PaymentHash = ""
			p.SwapID = ""
			n++
		}
	}
	return n, nil
}

// Fixed-output fakes for the codec and pricer.
type staticDecoder struct{}

func (staticDecoder) Decode(payload.Request) (*payload.Decoded, error) {
	return &payload.Decoded{Pin: 4242, Amount: 500}, nil
}

type staticPricer struct{}

func (staticPricer) AmountToSats(context.Context, *models.Device, float64) (int64, error) {
	return 4000, nil
}

type fakeDevices struct {
	device *models.Device
}

func (f *fakeDevices) Get(_ context.Context, id string) (*models.Device, error) {
	if f.device != nil && f.device.ID == id {
		return f.device, nil
	}
	return nil, errors.New("no such device")
}

type fakeWallets struct {
	balance int64
}

func (f *fakeWallets) GetWallet(context.Context, string) (*lightning.Wallet, error) {
	return &lightning.Wallet{ID: "w1", Balance: f.balance}, nil
}

func (f *fakeWallets) GetWalletByKey(context.Context, string) (*lightning.Wallet, error) {
	return &lightning.Wallet{ID: "w1", Balance: f.balance}, nil
}

type fakePayer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakePayer) Pay(context.Context, lightning.PayRequest) (*lightning.PayResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &lightning.PayResult{PaymentHash: "txhash1"}, nil
}

type fakeSwaps struct {
	err error
}

func (f *fakeSwaps) CreateReverseSwap(context.Context, boltz.ReverseSwapRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "swap42", nil
}

// exactDecoder accepts any bolt11 string of the form "inv:<msat>" and
// enforces the exact-amount rule the way the zpay32 decoder does.
type exactDecoder struct {
	msat int64
}

func (d *exactDecoder) DecodeExpecting(pr string, amountMsat int64) (*invoice.Invoice, error) {
	if d.msat != amountMsat {
		return nil, invoice.ErrAmountMismatch
	}
	return &invoice.Invoice{MilliSat: d.msat, PaymentHash: "abc"}, nil
}

type fakeResolver struct {
	pr string
}

func (f *fakeResolver) ResolveInvoice(context.Context, string, int64) (string, error) {
	return f.pr, nil
}

type env struct {
	svc     *Service
	repo    *memRepo
	payer   *fakePayer
	wallets *fakeWallets
	device  *models.Device
	ledger  *ledger.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()

	device := &models.Device{ID: "dev1", Key: "secret", Wallet: "w1", Title: "Lobby ATM", Currency: "USD", Boltz: true}
	repo := newMemRepo()
	ledgerSvc := ledger.NewService(repo, staticDecoder{}, staticPricer{}, nil)
	payer := &fakePayer{}
	wallets := &fakeWallets{balance: 10_000}

	svc := NewService(
		Config{CallbackBaseURL: "https://atm.example.com"},
		&fakeDevices{device: device},
		ledgerSvc,
		wallets,
		payer,
		&fakeSwaps{},
		&exactDecoder{msat: 4_000_000},
		&fakeResolver{pr: "lnbc40u1fake"},
		nil,
	)
	svc.spawn = func(f func()) { f() } // settle inline for tests

	return &env{svc: svc, repo: repo, payer: payer, wallets: wallets, device: device, ledger: ledgerSvc}
}

func TestParamsRegistersAndChallenges(t *testing.T) {
	e := newEnv(t)

	resp, err := e.svc.Params(context.Background(), "dev1", "blob1", "")
	require.NoError(t, err)

	assert.Equal(t, models.LnurlTagWithdraw, resp.Tag)
	assert.Equal(t, ledger.PaymentID("blob1"), resp.K1)
	assert.Equal(t, int64(4_000_000), resp.MinWithdrawable)
	assert.Equal(t, resp.MinWithdrawable, resp.MaxWithdrawable)
	assert.Contains(t, resp.Callback, "/api/v1/lnurl/cb/dev1")
	assert.Contains(t, resp.DefaultDescription, "Lobby ATM")
}

func TestParamsIsIdempotent(t *testing.T) {
	e := newEnv(t)

	first, err := e.svc.Params(context.Background(), "dev1", "blob1", "")
	require.NoError(t, err)
	second, err := e.svc.Params(context.Background(), "dev1", "blob1", "")
	require.NoError(t, err)

	assert.Equal(t, first.K1, second.K1)
	assert.Equal(t, first.MaxWithdrawable, second.MaxWithdrawable)
	assert.Len(t, e.repo.payments, 1)
}

func TestCallbackSettles(t *testing.T) {
	e := newEnv(t)
	resp, err := e.svc.Params(context.Background(), "dev1", "blob1", "")
	require.NoError(t, err)

	require.NoError(t, e.svc.Callback(context.Background(), "dev1", resp.K1, "inv"))

	record, err := e.repo.Get(context.Background(), resp.K1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, record.Status)
	assert.Equal(t, "txhash1", record.PaymentHash)
	assert.Equal(t, 1, e.payer.calls)
}

func TestCallbackSecondClaimRejected(t *testing.T) {
	e := newEnv(t)
	resp, err := e.svc.Params(context.Background(), "dev1", "blob1", "")
	require.NoError(t, err)

	require.NoError(t, e.svc.Callback(context.Background(), "dev1", resp.K1, "inv"))
	err = e.svc.Callback(context.Background(), "dev1", resp.K1, "inv")
	assert.ErrorIs(t, err, ledger.ErrAlreadyClaimed)
	assert.Equal(t, 1, e.payer.calls)
}

func TestCallbackWhilePendingRejected(t *testing.T) {
	e := newEnv(t)
	e.svc.spawn = func(func()) {} // leave the record pending
	resp, err := e.svc.Params(context.Background(), "dev1", "blob1", "")
	require.NoError(t, err)

	require.NoError(t, e.svc.Callback(context.Background(), "dev1", resp.K1, "inv"))
	err = e.svc.Callback(context.Background(), "dev1", resp.K1, "inv")
	assert.ErrorIs(t, err, ledger.ErrAlreadyPending)
}

func TestCallbackAmountMismatchLeavesUnclaimed(t *testing.T) {
	e := newEnv(t)
	e.svc.invoices = &exactDecoder{msat: 3_999_000}
	resp, err := e.svc.Params(context.Background(), "dev1", "blob1", "")
	require.NoError(t, err)

	err = e.svc.Callback(context.Background(), "dev1", resp.K1, "inv")
	assert.ErrorIs(t, err, invoice.ErrAmountMismatch)

	record, err := e.repo.Get(context.Background(), resp.K1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnclaimed, record.Status)
	assert.Equal(t, 0, e.payer.calls)
}

func TestCallbackInsufficientFunds(t *testing.T) {
	e := newEnv(t)
	e.wallets.balance = 4000 // needs 4000 + safety margin
	resp, err := e.svc.Params(context.Background(), "dev1", "blob1", "")
	require.NoError(t, err)

	err = e.svc.Callback(context.Background(), "dev1", resp.K1, "inv")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, 0, e.payer.calls)
}

func TestCallbackPayFailureReleasesRecord(t *testing.T) {
	e := newEnv(t)
	e.payer.err = errors.New("no route")
	resp, err := e.svc.Params(context.Background(), "dev1", "blob1", "")
	require.NoError(t, err)

	// Protocol phase succeeds, settlement fails in the background.
	require.NoError(t, e.svc.Callback(context.Background(), "dev1", resp.K1, "inv"))

	record, err := e.repo.Get(context.Background(), resp.K1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnclaimed, record.Status)

	// The payload is claimable again.
	e.payer.err = nil
	require.NoError(t, e.svc.Callback(context.Background(), "dev1", resp.K1, "inv"))
	record, err = e.repo.Get(context.Background(), resp.K1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, record.Status)
}

func TestCallbackWrongDevice(t *testing.T) {
	e := newEnv(t)
	resp, err := e.svc.Params(context.Background(), "dev1", "blob1", "")
	require.NoError(t, err)

	err = e.svc.Callback(context.Background(), "other", resp.K1, "inv")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestConcurrentCallbacksClaimOnce(t *testing.T) {
	e := newEnv(t)
	e.svc.spawn = func(func()) {} // keep winners pending
	resp, err := e.svc.Params(context.Background(), "dev1", "blob1", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.svc.Callback(context.Background(), "dev1", resp.K1, "inv"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestStaleRecordClaimableAgain(t *testing.T) {
	e := newEnv(t)
	e.svc.spawn = func(func()) {}
	resp, err := e.svc.Params(context.Background(), "dev1", "blob1", "")
	require.NoError(t, err)
	require.NoError(t, e.svc.Callback(context.Background(), "dev1", resp.K1, "inv"))

	// Age the pending record past the staleness window.
	e.repo.mu.Lock()
	e.repo.payments[resp.K1].UpdatedAt = time.Now().Add(-11 * time.Minute)
	e.repo.mu.Unlock()

	n, err := e.ledger.ResetStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, e.svc.Callback(context.Background(), "dev1", resp.K1, "inv"))
	err = e.svc.Callback(context.Background(), "dev1", resp.K1, "inv")
	assert.ErrorIs(t, err, ledger.ErrAlreadyPending)
}

func TestPayLightning(t *testing.T) {
	e := newEnv(t)

	scanned, err := lnurl.Encode("https://atm.example.com/api/v1/lnurl/dev1?p=blob1")
	require.NoError(t, err)

	record, err := e.svc.PayLightning(context.Background(), scanned, "user@wallet.example.com")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, record.Status)
	assert.Equal(t, "txhash1", record.PaymentHash)
}

func TestPayOnchain(t *testing.T) {
	e := newEnv(t)

	scanned, err := lnurl.Encode("https://atm.example.com/api/v1/lnurl/dev1?p=blob1")
	require.NoError(t, err)

	swapID, err := e.svc.PayOnchain(context.Background(), scanned, "BTCtempBTC", "bc1qaddress")
	require.NoError(t, err)
	assert.Equal(t, "swap42", swapID)

	record, err := e.repo.Get(context.Background(), ledger.PaymentID("blob1"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingSwap, record.Status)
	assert.Equal(t, "swap42", record.SwapID)
}

func TestPayOnchainRequiresBoltz(t *testing.T) {
	e := newEnv(t)
	e.device.Boltz = false

	scanned, err := lnurl.Encode("https://atm.example.com/api/v1/lnurl/dev1?p=blob1")
	require.NoError(t, err)

	_, err = e.svc.PayOnchain(context.Background(), scanned, "BTC", "bc1qaddress")
	assert.ErrorIs(t, err, ErrSwapNotSupported)
}

func TestPayOnchainSwapFailureReleases(t *testing.T) {
	e := newEnv(t)
	e.svc.swaps = &fakeSwaps{err: errors.New("boltz down")}

	scanned, err := lnurl.Encode("https://atm.example.com/api/v1/lnurl/dev1?p=blob1")
	require.NoError(t, err)

	_, err = e.svc.PayOnchain(context.Background(), scanned, "BTC", "bc1qaddress")
	assert.ErrorIs(t, err, ErrExecutionFailed)

	record, err := e.repo.Get(context.Background(), ledger.PaymentID("blob1"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnclaimed, record.Status)
}
