package httppresentation_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcascade "github.com/froome/fulfillment/internal/application/cascade"
	appinventory "github.com/froome/fulfillment/internal/application/inventory"
	apporder "github.com/froome/fulfillment/internal/application/order"
	apporderitem "github.com/froome/fulfillment/internal/application/orderitem"
	apppayment "github.com/froome/fulfillment/internal/application/payment"
	appproduct "github.com/froome/fulfillment/internal/application/product"
	appuser "github.com/froome/fulfillment/internal/application/user"
	"github.com/froome/fulfillment/internal/auth"
	"github.com/froome/fulfillment/internal/infrastructure/authtoken"
	"github.com/froome/fulfillment/internal/infrastructure/id"
	"github.com/froome/fulfillment/internal/infrastructure/memory"
	"github.com/froome/fulfillment/internal/pkg/locker"
	httppresentation "github.com/froome/fulfillment/internal/presentation/http"
)

type stubHasher struct{}

func (stubHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }
func (stubHasher) Verify(hash, password string) bool    { return hash == "hashed:"+password }

type testServer struct {
	srv        *httptest.Server
	adminToken string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	users := memory.NewUserRepository()
	products := memory.NewProductRepository()
	orders := memory.NewOrderRepository()
	items := memory.NewOrderItemRepository()
	payments := memory.NewPaymentRepository()

	locks := locker.New()
	idGen := id.NewUUIDGenerator()
	ledger := appinventory.NewLedger(products, nil, nil)

	userSvc := appuser.NewService(users, stubHasher{}, idGen, nil)
	productSvc := appproduct.NewService(products, ledger, idGen, nil)
	orderSvc := apporder.NewService(orders, items, users, ledger, locks, idGen, nil, nil)
	itemSvc := apporderitem.NewService(orders, items, products, ledger, locks, idGen, nil)
	paymentSvc := apppayment.NewService(payments, orders, items, products, locks, idGen, nil, nil)
	cascadeSvc := appcascade.NewCoordinator(orders, items, payments, users, ledger, locks, nil, nil)

	tokens := authtoken.NewStore()
	h := httppresentation.NewHandler(userSvc, productSvc, orderSvc, itemSvc, paymentSvc, cascadeSvc, tokens, tokens, nil)

	admin, err := userSvc.Register(context.Background(), appuser.RegisterInput{
		Username: "admin", Email: "admin@example.com", Password: "root", Admin: true,
	})
	require.NoError(t, err)
	adminToken, err := tokens.Issue(context.Background(), auth.Capability{UserID: admin.ID, Admin: true})
	require.NoError(t, err)

	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, adminToken: adminToken}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (ts *testServer) registerAndLogin(t *testing.T, username, email string) (userID, token string) {
	t.Helper()
	resp, body := ts.do(t, http.MethodPost, "/users", "", map[string]any{
		"username": username, "email": email, "password": "secret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	userID = body["id"].(string)

	resp, body = ts.do(t, http.MethodPost, "/login", "", map[string]any{
		"email": email, "password": "secret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token = body["token"].(string)
	return userID, token
}

func (ts *testServer) createProduct(t *testing.T, name string, price float64, stock int) string {
	t.Helper()
	resp, body := ts.do(t, http.MethodPost, "/products", ts.adminToken, map[string]any{
		"name": name, "price": price, "stock": stock,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["id"].(string)
}

func TestRegisterLoginAndWhoCanSeeWhat(t *testing.T) {
	ts := newTestServer(t)
	userID, token := ts.registerAndLogin(t, "alice", "alice@example.com")

	resp, body := ts.do(t, http.MethodGet, "/users/"+userID, token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", body["username"])

	// no credential
	resp, _ = ts.do(t, http.MethodGet, "/users/"+userID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// another user's record
	_, otherToken := ts.registerAndLogin(t, "bob", "bob@example.com")
	resp, _ = ts.do(t, http.MethodGet, "/users/"+userID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// bad credential is rejected at the boundary
	resp, _ = ts.do(t, http.MethodGet, "/users/"+userID, "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// duplicate email
	resp, _ = ts.do(t, http.MethodPost, "/users", "", map[string]any{
		"username": "alice2", "email": "alice@example.com", "password": "x",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// wrong password
	resp, _ = ts.do(t, http.MethodPost, "/login", "", map[string]any{
		"email": "alice@example.com", "password": "nope",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProductEndpointsAdminGate(t *testing.T) {
	ts := newTestServer(t)
	_, userToken := ts.registerAndLogin(t, "alice", "alice@example.com")

	resp, _ := ts.do(t, http.MethodPost, "/products", userToken, map[string]any{
		"name": "widget", "price": 5, "stock": 3,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	productID := ts.createProduct(t, "widget", 5, 3)

	// catalog reads are public
	resp, body := ts.do(t, http.MethodGet, "/products/"+productID, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "widget", body["name"])

	resp, _ = ts.do(t, http.MethodGet, "/products/ghost", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.registerAndLogin(t, "alice", "alice@example.com")
	productID := ts.createProduct(t, "widget", 19.99, 10)

	resp, order := ts.do(t, http.MethodPost, "/orders", token, map[string]any{})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	orderID := order["id"].(string)
	assert.Equal(t, "CREATED", order["status"])

	// invalid quantity
	resp, _ = ts.do(t, http.MethodPost, "/orders/"+orderID+"/items", token, map[string]any{
		"product_id": productID, "quantity": 0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// more than in stock
	resp, _ = ts.do(t, http.MethodPost, "/orders/"+orderID+"/items", token, map[string]any{
		"product_id": productID, "quantity": 11,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, item := ts.do(t, http.MethodPost, "/orders/"+orderID+"/items", token, map[string]any{
		"product_id": productID, "quantity": 2,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "39.98", item["price"])

	resp, payment := ts.do(t, http.MethodPost, "/orders/"+orderID+"/payments", token, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "39.98", payment["amount"])

	// paid orders refuse new items
	resp, _ = ts.do(t, http.MethodPost, "/orders/"+orderID+"/items", token, map[string]any{
		"product_id": productID, "quantity": 1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// and a second charge
	resp, _ = ts.do(t, http.MethodPost, "/orders/"+orderID+"/payments", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// admin ships and delivers
	resp, _ = ts.do(t, http.MethodPut, "/orders/"+orderID+"/status", ts.adminToken, map[string]any{
		"status": "SHIPPED",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body := ts.do(t, http.MethodPut, "/orders/"+orderID+"/status", ts.adminToken, map[string]any{
		"status": "DELIVERED",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "DELIVERED", body["status"])

	// non-admin may not drive fulfillment
	resp, _ = ts.do(t, http.MethodPut, "/orders/"+orderID+"/status", token, map[string]any{
		"status": "SHIPPED",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCancelAndCascadeOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	userID, token := ts.registerAndLogin(t, "alice", "alice@example.com")
	productID := ts.createProduct(t, "widget", 4, 10)

	resp, order := ts.do(t, http.MethodPost, "/orders", token, map[string]any{})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	orderID := order["id"].(string)

	resp, _ = ts.do(t, http.MethodPost, "/orders/"+orderID+"/items", token, map[string]any{
		"product_id": productID, "quantity": 6,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := ts.do(t, http.MethodPost, "/orders/"+orderID+"/cancel", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CANCELLED", body["status"])

	// stock came back
	resp, product := ts.do(t, http.MethodGet, "/products/"+productID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(10), product["stock"])

	// cancelling again is an invalid transition
	resp, _ = ts.do(t, http.MethodPost, "/orders/"+orderID+"/cancel", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// deleting the user removes the cancelled order with it
	resp, _ = ts.do(t, http.MethodDelete, "/users/"+userID, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, "/orders/"+orderID, ts.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// the deleted user's token no longer resolves
	resp, _ = ts.do(t, http.MethodPost, "/orders", token, map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
