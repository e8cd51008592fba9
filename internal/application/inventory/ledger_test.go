package inventory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/froome/fulfillment/internal/application/inventory"
	domproduct "github.com/froome/fulfillment/internal/domain/product"
	"github.com/froome/fulfillment/internal/infrastructure/memory"
)

func newLedger(t *testing.T, stock int) (*inventory.Ledger, *memory.ProductRepository) {
	t.Helper()
	repo := memory.NewProductRepository()
	p, err := domproduct.New("p1", "widget", "", decimal.NewFromInt(5), stock)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(context.Background(), p))
	return inventory.NewLedger(repo, nil, nil), repo
}

func stockOf(t *testing.T, repo *memory.ProductRepository, id string) int {
	t.Helper()
	p, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func TestLedgerReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	ledger, repo := newLedger(t, 10)

	require.NoError(t, ledger.Reserve(ctx, "p1", 4))
	assert.Equal(t, 6, stockOf(t, repo, "p1"))

	require.NoError(t, ledger.Release(ctx, "p1", 3))
	assert.Equal(t, 9, stockOf(t, repo, "p1"))

	err := ledger.Reserve(ctx, "p1", 10)
	require.ErrorIs(t, err, domproduct.ErrInsufficientStock)
	assert.Equal(t, 9, stockOf(t, repo, "p1"))
}

func TestLedgerRejectsNonPositiveQuantities(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newLedger(t, 10)

	require.ErrorIs(t, ledger.Reserve(ctx, "p1", 0), domproduct.ErrInvalidQuantity)
	require.ErrorIs(t, ledger.Reserve(ctx, "p1", -2), domproduct.ErrInvalidQuantity)
	require.ErrorIs(t, ledger.Release(ctx, "p1", 0), domproduct.ErrInvalidQuantity)
	require.ErrorIs(t, ledger.Adjust(ctx, "p1", 2, 0), domproduct.ErrInvalidQuantity)
}

func TestLedgerReserveUnknownProduct(t *testing.T) {
	ledger, _ := newLedger(t, 10)
	err := ledger.Reserve(context.Background(), "ghost", 1)
	require.ErrorIs(t, err, domproduct.ErrNotFound)
}

func TestLedgerAdjustAppliesNetDelta(t *testing.T) {
	ctx := context.Background()
	ledger, repo := newLedger(t, 10)

	require.NoError(t, ledger.Reserve(ctx, "p1", 4)) // stock 6

	// growing the reservation takes only the increment
	require.NoError(t, ledger.Adjust(ctx, "p1", 4, 7))
	assert.Equal(t, 3, stockOf(t, repo, "p1"))

	// shrinking returns the difference
	require.NoError(t, ledger.Adjust(ctx, "p1", 7, 2))
	assert.Equal(t, 8, stockOf(t, repo, "p1"))

	// equal quantities are a no-op
	require.NoError(t, ledger.Adjust(ctx, "p1", 2, 2))
	assert.Equal(t, 8, stockOf(t, repo, "p1"))

	// an increment past available stock fails atomically
	err := ledger.Adjust(ctx, "p1", 2, 11)
	require.ErrorIs(t, err, domproduct.ErrInsufficientStock)
	assert.Equal(t, 8, stockOf(t, repo, "p1"))
}

func TestLedgerConcurrentReservationsNeverOversell(t *testing.T) {
	ctx := context.Background()
	ledger, repo := newLedger(t, 30)

	const workers = 60
	var wg sync.WaitGroup
	var mu sync.Mutex
	reserved := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ledger.Reserve(ctx, "p1", 1); err == nil {
				mu.Lock()
				reserved++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 30, reserved)
	assert.Equal(t, 0, stockOf(t, repo, "p1"))
}
