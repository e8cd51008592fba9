package cascade_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/froome/fulfillment/internal/application/cascade"
	"github.com/froome/fulfillment/internal/application/inventory"
	"github.com/froome/fulfillment/internal/auth"
	domorder "github.com/froome/fulfillment/internal/domain/order"
	dompayment "github.com/froome/fulfillment/internal/domain/payment"
	domproduct "github.com/froome/fulfillment/internal/domain/product"
	domuser "github.com/froome/fulfillment/internal/domain/user"
	"github.com/froome/fulfillment/internal/infrastructure/memory"
	"github.com/froome/fulfillment/internal/pkg/locker"
)

type cascadeFixture struct {
	coord    *cascade.Coordinator
	orders   *memory.OrderRepository
	items    *memory.OrderItemRepository
	payments *memory.PaymentRepository
	users    *memory.UserRepository
	products *memory.ProductRepository
}

var owner = auth.Capability{UserID: "u1"}

func newCascadeFixture(t *testing.T) *cascadeFixture {
	t.Helper()
	orders := memory.NewOrderRepository()
	items := memory.NewOrderItemRepository()
	payments := memory.NewPaymentRepository()
	users := memory.NewUserRepository()
	products := memory.NewProductRepository()
	ledger := inventory.NewLedger(products, nil, nil)
	coord := cascade.NewCoordinator(orders, items, payments, users, ledger, locker.New(), nil, nil)

	u, err := domuser.New("u1", "alice", "alice@example.com", "", "x", false)
	require.NoError(t, err)
	require.NoError(t, users.Insert(context.Background(), u))

	return &cascadeFixture{coord: coord, orders: orders, items: items, payments: payments, users: users, products: products}
}

func (f *cascadeFixture) seedProduct(t *testing.T, id string, stock int) {
	t.Helper()
	p, err := domproduct.New(id, "sku-"+id, "", decimal.NewFromInt(10), stock)
	require.NoError(t, err)
	require.NoError(t, f.products.Insert(context.Background(), p))
}

// seedOrder creates an order for u1 with reserved lines quantity 2 of p1
// and 3 of p2, plus an active payment.
func (f *cascadeFixture) seedOrder(t *testing.T, orderID string) {
	t.Helper()
	ctx := context.Background()

	o, err := domorder.New(orderID, owner.UserID)
	require.NoError(t, err)
	require.NoError(t, f.orders.Insert(ctx, o))

	for i, line := range []struct {
		productID string
		qty       int
	}{{"p1", 2}, {"p2", 3}} {
		_, err := f.products.AdjustStock(ctx, line.productID, -line.qty)
		require.NoError(t, err)
		it, err := domorder.NewItem(orderID+"-i"+string(rune('1'+i)), orderID, line.productID, line.qty, decimal.NewFromInt(10))
		require.NoError(t, err)
		require.NoError(t, f.items.Insert(ctx, it))
	}

	pay, err := dompayment.New(orderID+"-pay", orderID, decimal.NewFromInt(50))
	require.NoError(t, err)
	require.NoError(t, f.payments.Insert(ctx, pay))
}

func (f *cascadeFixture) stock(t *testing.T, productID string) int {
	t.Helper()
	p, err := f.products.Get(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func TestDeleteOrderRemovesEverythingAndRestoresStock(t *testing.T) {
	ctx := context.Background()
	f := newCascadeFixture(t)
	f.seedProduct(t, "p1", 10)
	f.seedProduct(t, "p2", 10)
	f.seedOrder(t, "o1")

	require.NoError(t, f.coord.DeleteOrder(ctx, owner, "o1"))

	assert.Equal(t, 10, f.stock(t, "p1"))
	assert.Equal(t, 10, f.stock(t, "p2"))

	_, err := f.orders.Get(ctx, "o1")
	require.ErrorIs(t, err, domorder.ErrNotFound)

	lines, err := f.items.ListByOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Empty(t, lines)

	ps, err := f.payments.ListByOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Empty(t, ps)
}

func TestDeleteOrderAccessControl(t *testing.T) {
	ctx := context.Background()
	f := newCascadeFixture(t)
	f.seedProduct(t, "p1", 10)
	f.seedProduct(t, "p2", 10)
	f.seedOrder(t, "o1")

	err := f.coord.DeleteOrder(ctx, auth.Capability{UserID: "intruder"}, "o1")
	require.ErrorIs(t, err, auth.ErrForbidden)

	err = f.coord.DeleteOrder(ctx, owner, "ghost")
	require.ErrorIs(t, err, domorder.ErrNotFound)
}

func TestDeleteCancelledOrderSkipsRelease(t *testing.T) {
	ctx := context.Background()
	f := newCascadeFixture(t)
	f.seedProduct(t, "p1", 10)
	f.seedProduct(t, "p2", 10)
	f.seedOrder(t, "o1")

	// cancellation already returned the stock
	require.NoError(t, f.orders.UpdateStatus(ctx, "o1", domorder.StatusCreated, domorder.StatusCancelled))
	_, err := f.products.AdjustStock(ctx, "p1", 2)
	require.NoError(t, err)
	_, err = f.products.AdjustStock(ctx, "p2", 3)
	require.NoError(t, err)

	require.NoError(t, f.coord.DeleteOrder(ctx, owner, "o1"))

	// no double release
	assert.Equal(t, 10, f.stock(t, "p1"))
	assert.Equal(t, 10, f.stock(t, "p2"))
}

func TestDeleteOrderToleratesMissingProduct(t *testing.T) {
	ctx := context.Background()
	f := newCascadeFixture(t)
	f.seedProduct(t, "p1", 10)
	f.seedProduct(t, "p2", 10)
	f.seedOrder(t, "o1")

	// the catalog entry disappeared after the reservation
	require.NoError(t, f.products.Delete(ctx, "p2"))

	require.NoError(t, f.coord.DeleteOrder(ctx, owner, "o1"))

	assert.Equal(t, 10, f.stock(t, "p1"))
	_, err := f.orders.Get(ctx, "o1")
	require.ErrorIs(t, err, domorder.ErrNotFound)
}

func TestDeleteUserCascadesAllOrders(t *testing.T) {
	ctx := context.Background()
	f := newCascadeFixture(t)
	f.seedProduct(t, "p1", 20)
	f.seedProduct(t, "p2", 20)
	f.seedOrder(t, "o1")
	f.seedOrder(t, "o2")

	require.NoError(t, f.coord.DeleteUser(ctx, owner, "u1"))

	_, err := f.users.Get(ctx, "u1")
	require.ErrorIs(t, err, domuser.ErrNotFound)
	_, err = f.orders.Get(ctx, "o1")
	require.ErrorIs(t, err, domorder.ErrNotFound)
	_, err = f.orders.Get(ctx, "o2")
	require.ErrorIs(t, err, domorder.ErrNotFound)

	assert.Equal(t, 20, f.stock(t, "p1"))
	assert.Equal(t, 20, f.stock(t, "p2"))
}

func TestDeleteUserAccessControl(t *testing.T) {
	ctx := context.Background()
	f := newCascadeFixture(t)

	err := f.coord.DeleteUser(ctx, auth.Capability{UserID: "intruder"}, "u1")
	require.ErrorIs(t, err, auth.ErrForbidden)

	err = f.coord.DeleteUser(ctx, auth.Capability{Admin: true}, "ghost")
	require.ErrorIs(t, err, domuser.ErrNotFound)
}

func TestStepErrorNamesFailingStep(t *testing.T) {
	sentinel := errors.New("boom")
	err := &cascade.StepError{Step: cascade.StepReleaseStock, OrderID: "o1", Err: sentinel}

	assert.Contains(t, err.Error(), cascade.StepReleaseStock)
	assert.True(t, errors.Is(err, sentinel))
}
