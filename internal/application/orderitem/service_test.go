package orderitem_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/froome/fulfillment/internal/application/inventory"
	"github.com/froome/fulfillment/internal/application/orderitem"
	"github.com/froome/fulfillment/internal/auth"
	domorder "github.com/froome/fulfillment/internal/domain/order"
	domproduct "github.com/froome/fulfillment/internal/domain/product"
	"github.com/froome/fulfillment/internal/infrastructure/id"
	"github.com/froome/fulfillment/internal/infrastructure/memory"
	"github.com/froome/fulfillment/internal/pkg/locker"
)

type itemFixture struct {
	svc      *orderitem.Service
	orders   *memory.OrderRepository
	items    *memory.OrderItemRepository
	products *memory.ProductRepository
}

var owner = auth.Capability{UserID: "u1"}

func newItemFixture(t *testing.T) *itemFixture {
	t.Helper()
	orders := memory.NewOrderRepository()
	items := memory.NewOrderItemRepository()
	products := memory.NewProductRepository()
	ledger := inventory.NewLedger(products, nil, nil)
	svc := orderitem.NewService(orders, items, products, ledger, locker.New(), id.NewUUIDGenerator(), nil)
	return &itemFixture{svc: svc, orders: orders, items: items, products: products}
}

func (f *itemFixture) addProduct(t *testing.T, productID string, price float64, stock int) {
	t.Helper()
	p, err := domproduct.New(productID, "sku-"+productID, "", decimal.NewFromFloat(price), stock)
	require.NoError(t, err)
	require.NoError(t, f.products.Insert(context.Background(), p))
}

func (f *itemFixture) addOrder(t *testing.T, orderID string) {
	t.Helper()
	o, err := domorder.New(orderID, owner.UserID)
	require.NoError(t, err)
	require.NoError(t, f.orders.Insert(context.Background(), o))
}

func (f *itemFixture) stock(t *testing.T, productID string) int {
	t.Helper()
	p, err := f.products.Get(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func TestAddItemReservesStockUntilExhausted(t *testing.T) {
	ctx := context.Background()
	f := newItemFixture(t)
	f.addProduct(t, "p1", 2.50, 10)
	f.addOrder(t, "o1")
	f.addOrder(t, "o2")

	_, err := f.svc.AddItem(ctx, owner, "o1", "p1", 4)
	require.NoError(t, err)
	assert.Equal(t, 6, f.stock(t, "p1"))

	_, err = f.svc.AddItem(ctx, owner, "o2", "p1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, f.stock(t, "p1"))

	_, err = f.svc.AddItem(ctx, owner, "o2", "p1", 5)
	require.ErrorIs(t, err, domproduct.ErrInsufficientStock)
	assert.Equal(t, 3, f.stock(t, "p1"))

	// releasing both orders restores the original count
	require.NoError(t, f.svc.DeleteItem(ctx, owner, "o1", itemID(t, f, "o1", "p1")))
	require.NoError(t, f.svc.DeleteItem(ctx, owner, "o2", itemID(t, f, "o2", "p1")))
	assert.Equal(t, 10, f.stock(t, "p1"))
}

func itemID(t *testing.T, f *itemFixture, orderID, productID string) string {
	t.Helper()
	it, err := f.items.FindByProduct(context.Background(), orderID, productID)
	require.NoError(t, err)
	return it.ID
}

func TestAddItemMergesExistingLine(t *testing.T) {
	ctx := context.Background()
	f := newItemFixture(t)
	f.addProduct(t, "p1", 3.00, 10)
	f.addOrder(t, "o1")

	first, err := f.svc.AddItem(ctx, owner, "o1", "p1", 2)
	require.NoError(t, err)

	merged, err := f.svc.AddItem(ctx, owner, "o1", "p1", 3)
	require.NoError(t, err)

	assert.Equal(t, first.ID, merged.ID)
	assert.Equal(t, 5, merged.Quantity)
	assert.True(t, merged.Price.Equal(decimal.NewFromFloat(15.00)),
		"captured price %s", merged.Price)
	assert.Equal(t, 5, f.stock(t, "p1"))

	lines, err := f.svc.ListItems(ctx, owner, "o1")
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestAddItemValidation(t *testing.T) {
	ctx := context.Background()
	f := newItemFixture(t)
	f.addProduct(t, "p1", 1.00, 5)
	f.addOrder(t, "o1")

	_, err := f.svc.AddItem(ctx, owner, "o1", "p1", 0)
	require.ErrorIs(t, err, domorder.ErrInvalidQuantity)

	_, err = f.svc.AddItem(ctx, owner, "o1", "ghost", 1)
	require.ErrorIs(t, err, domproduct.ErrNotFound)

	_, err = f.svc.AddItem(ctx, owner, "ghost", "p1", 1)
	require.ErrorIs(t, err, domorder.ErrNotFound)

	_, err = f.svc.AddItem(ctx, auth.Capability{UserID: "intruder"}, "o1", "p1", 1)
	require.ErrorIs(t, err, auth.ErrForbidden)

	_, err = f.svc.AddItem(ctx, auth.Capability{}, "o1", "p1", 1)
	require.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestAddItemRejectedAfterPayment(t *testing.T) {
	ctx := context.Background()
	f := newItemFixture(t)
	f.addProduct(t, "p1", 1.00, 5)
	f.addOrder(t, "o1")
	require.NoError(t, f.orders.UpdateStatus(ctx, "o1", domorder.StatusCreated, domorder.StatusPaid))

	_, err := f.svc.AddItem(ctx, owner, "o1", "p1", 1)
	require.ErrorIs(t, err, domorder.ErrNotModifiable)
	assert.Equal(t, 5, f.stock(t, "p1"))
}

func TestUpdateItemSameProductAdjustsNet(t *testing.T) {
	ctx := context.Background()
	f := newItemFixture(t)
	f.addProduct(t, "p1", 4.00, 10)
	f.addOrder(t, "o1")

	it, err := f.svc.AddItem(ctx, owner, "o1", "p1", 4) // stock 6
	require.NoError(t, err)

	updated, err := f.svc.UpdateItem(ctx, owner, "o1", it.ID, "p1", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Quantity)
	assert.True(t, updated.Price.Equal(decimal.NewFromFloat(28.00)))
	assert.Equal(t, 3, f.stock(t, "p1"))

	updated, err = f.svc.UpdateItem(ctx, owner, "o1", it.ID, "p1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Quantity)
	assert.Equal(t, 8, f.stock(t, "p1"))

	// increment beyond stock fails without partial effect
	_, err = f.svc.UpdateItem(ctx, owner, "o1", it.ID, "p1", 11)
	require.ErrorIs(t, err, domproduct.ErrInsufficientStock)
	assert.Equal(t, 8, f.stock(t, "p1"))

	it2, err := f.svc.GetItem(ctx, owner, "o1", it.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, it2.Quantity)
}

func TestUpdateItemProductSwap(t *testing.T) {
	ctx := context.Background()
	f := newItemFixture(t)
	f.addProduct(t, "p1", 4.00, 10)
	f.addProduct(t, "p2", 6.00, 3)
	f.addOrder(t, "o1")

	it, err := f.svc.AddItem(ctx, owner, "o1", "p1", 5) // p1 stock 5
	require.NoError(t, err)

	updated, err := f.svc.UpdateItem(ctx, owner, "o1", it.ID, "p2", 2)
	require.NoError(t, err)
	assert.Equal(t, "p2", updated.ProductID)
	assert.True(t, updated.Price.Equal(decimal.NewFromFloat(12.00)))
	assert.Equal(t, 10, f.stock(t, "p1"))
	assert.Equal(t, 1, f.stock(t, "p2"))

	// swap to a product without enough stock leaves both counts alone
	_, err = f.svc.UpdateItem(ctx, owner, "o1", it.ID, "p1", 11)
	require.ErrorIs(t, err, domproduct.ErrInsufficientStock)
	assert.Equal(t, 10, f.stock(t, "p1"))
	assert.Equal(t, 1, f.stock(t, "p2"))
}

func TestDeleteItemReleasesStock(t *testing.T) {
	ctx := context.Background()
	f := newItemFixture(t)
	f.addProduct(t, "p1", 4.00, 10)
	f.addOrder(t, "o1")

	it, err := f.svc.AddItem(ctx, owner, "o1", "p1", 6)
	require.NoError(t, err)
	assert.Equal(t, 4, f.stock(t, "p1"))

	require.NoError(t, f.svc.DeleteItem(ctx, owner, "o1", it.ID))
	assert.Equal(t, 10, f.stock(t, "p1"))

	err = f.svc.DeleteItem(ctx, owner, "o1", it.ID)
	require.ErrorIs(t, err, domorder.ErrItemNotFound)
	assert.Equal(t, 10, f.stock(t, "p1"))
}

func TestListItemsRequiresOwnerOrAdmin(t *testing.T) {
	ctx := context.Background()
	f := newItemFixture(t)
	f.addProduct(t, "p1", 1.00, 5)
	f.addOrder(t, "o1")

	_, err := f.svc.AddItem(ctx, owner, "o1", "p1", 1)
	require.NoError(t, err)

	_, err = f.svc.ListItems(ctx, auth.Capability{UserID: "intruder"}, "o1")
	require.ErrorIs(t, err, auth.ErrForbidden)

	lines, err := f.svc.ListItems(ctx, auth.Capability{Admin: true}, "o1")
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}
