package httppresentation

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	appcascade "github.com/froome/fulfillment/internal/application/cascade"
	apporder "github.com/froome/fulfillment/internal/application/order"
	apporderitem "github.com/froome/fulfillment/internal/application/orderitem"
	apppayment "github.com/froome/fulfillment/internal/application/payment"
	appproduct "github.com/froome/fulfillment/internal/application/product"
	appuser "github.com/froome/fulfillment/internal/application/user"
	"github.com/froome/fulfillment/internal/auth"
	domorder "github.com/froome/fulfillment/internal/domain/order"
	dompayment "github.com/froome/fulfillment/internal/domain/payment"
	domproduct "github.com/froome/fulfillment/internal/domain/product"
	domuser "github.com/froome/fulfillment/internal/domain/user"
	"github.com/froome/fulfillment/internal/observability"
)

// TokenStore issues and revokes boundary credentials.
type TokenStore interface {
	Issue(ctx context.Context, cap auth.Capability) (string, error)
	RevokeUser(ctx context.Context, userID string)
}

type Handler struct {
	users    *appuser.Service
	products *appproduct.Service
	orders   *apporder.Service
	items    *apporderitem.Service
	payments *apppayment.Service
	cascade  *appcascade.Coordinator
	tokens   TokenStore
	resolver auth.Resolver
	log      observability.Logger
	tel      observability.Telemetry
}

func NewHandler(
	users *appuser.Service,
	products *appproduct.Service,
	orders *apporder.Service,
	items *apporderitem.Service,
	payments *apppayment.Service,
	cascade *appcascade.Coordinator,
	tokens TokenStore,
	resolver auth.Resolver,
	tel observability.Telemetry,
) *Handler {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	return &Handler{
		users:    users,
		products: products,
		orders:   orders,
		items:    items,
		payments: payments,
		cascade:  cascade,
		tokens:   tokens,
		resolver: resolver,
		log:      tel.Logger().With(observability.F("component", "http_server")),
		tel:      tel,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(ObservabilityMiddleware(h.log, h.tel))
	r.Use(CapabilityMiddleware(h.resolver))

	r.Get("/health", h.handleHealth)

	r.Post("/users", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Get("/users", h.handleListUsers)
	r.Get("/users/{userID}", h.handleGetUser)
	r.Put("/users/{userID}", h.handleUpdateUser)
	r.Delete("/users/{userID}", h.handleDeleteUser)
	r.Get("/users/{userID}/orders", h.handleListUserOrders)

	r.Post("/products", h.handleCreateProduct)
	r.Get("/products", h.handleListProducts)
	r.Get("/products/{productID}", h.handleGetProduct)
	r.Put("/products/{productID}", h.handleUpdateProduct)
	r.Post("/products/{productID}/restock", h.handleRestockProduct)
	r.Delete("/products/{productID}", h.handleDeleteProduct)

	r.Post("/orders", h.handleCreateOrder)
	r.Get("/orders", h.handleListOrders)
	r.Get("/orders/{orderID}", h.handleGetOrder)
	r.Put("/orders/{orderID}/status", h.handleUpdateOrderStatus)
	r.Post("/orders/{orderID}/cancel", h.handleCancelOrder)
	r.Delete("/orders/{orderID}", h.handleDeleteOrder)

	r.Post("/orders/{orderID}/items", h.handleAddItem)
	r.Get("/orders/{orderID}/items", h.handleListItems)
	r.Get("/orders/{orderID}/items/{itemID}", h.handleGetItem)
	r.Put("/orders/{orderID}/items/{itemID}", h.handleUpdateItem)
	r.Delete("/orders/{orderID}/items/{itemID}", h.handleDeleteItem)

	r.Post("/orders/{orderID}/payments", h.handleCreatePayment)
	r.Get("/orders/{orderID}/payments", h.handleListOrderPayments)
	r.Get("/payments/{paymentID}", h.handleGetPayment)
	r.Delete("/payments/{paymentID}", h.handleDeletePayment)

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// --- users ---

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Address  string `json:"address"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	Admin     bool      `json:"admin"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *domuser.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Address:   u.Address,
		Admin:     u.Admin,
		CreatedAt: u.CreatedAt,
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	u, err := h.users.Register(r.Context(), appuser.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Address:  req.Address,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	u, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	token, err := h.tokens.Issue(r.Context(), auth.Capability{UserID: u.ID, Admin: u.Admin})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: toUserResponse(u)})
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	us, err := h.users.List(r.Context(), auth.CapabilityFrom(r.Context()), page, size)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]userResponse, 0, len(us))
	for _, u := range us {
		out = append(out, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), auth.CapabilityFrom(r.Context()), chi.URLParam(r, "userID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

type updateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Address  string `json:"address"`
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	u, err := h.users.Update(r.Context(), auth.CapabilityFrom(r.Context()), chi.URLParam(r, "userID"), appuser.UpdateInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Address:  req.Address,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := h.cascade.DeleteUser(r.Context(), auth.CapabilityFrom(r.Context()), userID); err != nil {
		writeDomainError(w, err)
		return
	}
	h.tokens.RevokeUser(r.Context(), userID)
	w.WriteHeader(http.StatusNoContent)
}

// --- products ---

type productRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

type productResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

func toProductResponse(p *domproduct.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
	}
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := h.products.Create(r.Context(), auth.CapabilityFrom(r.Context()), appproduct.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(p))
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	ps, err := h.products.List(r.Context(), page, size)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]productResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Get(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := h.products.Update(r.Context(), auth.CapabilityFrom(r.Context()), chi.URLParam(r, "productID"), appproduct.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

type restockRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) handleRestockProduct(w http.ResponseWriter, r *http.Request) {
	var req restockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id := chi.URLParam(r, "productID")
	if err := h.products.Restock(r.Context(), auth.CapabilityFrom(r.Context()), id, req.Quantity); err != nil {
		writeDomainError(w, err)
		return
	}
	p, err := h.products.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), auth.CapabilityFrom(r.Context()), chi.URLParam(r, "productID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- orders ---

type createOrderRequest struct {
	UserID string `json:"user_id"`
}

type orderResponse struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Status    domorder.Status `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func toOrderResponse(o *domorder.Order) orderResponse {
	return orderResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cap := auth.CapabilityFrom(r.Context())
	userID := req.UserID
	if userID == "" {
		userID = cap.UserID
	}
	o, err := h.orders.CreateOrder(r.Context(), cap, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	os, err := h.orders.ListOrders(r.Context(), auth.CapabilityFrom(r.Context()), page, size)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(os))
}

func (h *Handler) handleListUserOrders(w http.ResponseWriter, r *http.Request) {
	os, err := h.orders.ListUserOrders(r.Context(), auth.CapabilityFrom(r.Context()), chi.URLParam(r, "userID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(os))
}

func toOrderResponses(os []*domorder.Order) []orderResponse {
	out := make([]orderResponse, 0, len(os))
	for _, o := range os {
		out = append(out, toOrderResponse(o))
	}
	return out
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), auth.CapabilityFrom(r.Context()), chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type updateStatusRequest struct {
	Status domorder.Status `json:"status"`
}

func (h *Handler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id := chi.URLParam(r, "orderID")
	cap := auth.CapabilityFrom(r.Context())
	if err := h.orders.UpdateStatus(r.Context(), cap, id, req.Status); err != nil {
		writeDomainError(w, err)
		return
	}
	o, err := h.orders.GetOrder(r.Context(), cap, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orderID")
	cap := auth.CapabilityFrom(r.Context())
	if err := h.orders.Cancel(r.Context(), cap, id); err != nil {
		writeDomainError(w, err)
		return
	}
	o, err := h.orders.GetOrder(r.Context(), cap, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.cascade.DeleteOrder(r.Context(), auth.CapabilityFrom(r.Context()), chi.URLParam(r, "orderID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- order items ---

type itemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type itemResponse struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func toItemResponse(it *domorder.Item) itemResponse {
	return itemResponse{
		ID:        it.ID,
		OrderID:   it.OrderID,
		ProductID: it.ProductID,
		Quantity:  it.Quantity,
		Price:     it.Price,
	}
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	it, err := h.items.AddItem(r.Context(), auth.CapabilityFrom(r.Context()), chi.URLParam(r, "orderID"), req.ProductID, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemResponse(it))
}

func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request) {
	its, err := h.items.ListItems(r.Context(), auth.CapabilityFrom(r.Context()), chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]itemResponse, 0, len(its))
	for _, it := range its {
		out = append(out, toItemResponse(it))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	it, err := h.items.GetItem(r.Context(), auth.CapabilityFrom(r.Context()), chi.URLParam(r, "orderID"), chi.URLParam(r, "itemID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(it))
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	it, err := h.items.UpdateItem(r.Context(), auth.CapabilityFrom(r.Context()), chi.URLParam(r, "orderID"), chi.URLParam(r, "itemID"), req.ProductID, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(it))
}

func (h *Handler) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.items.DeleteItem(r.Context(), auth.CapabilityFrom(r.Context()), chi.URLParam(r, "orderID"), chi.URLParam(r, "itemID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- payments ---

type paymentResponse struct {
	ID      string          `json:"id"`
	OrderID string          `json:"order_id"`
	Amount  decimal.Decimal `json:"amount"`
	PaidAt  time.Time       `json:"paid_at"`
}

func toPaymentResponse(p *dompayment.Payment) paymentResponse {
	return paymentResponse{
		ID:      p.ID,
		OrderID: p.OrderID,
		Amount:  p.Amount,
		PaidAt:  p.PaidAt,
	}
}

func (h *Handler) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.payments.CreatePayment(r.Context(), auth.CapabilityFrom(r.Context()), chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResponse(p))
}

func (h *Handler) handleListOrderPayments(w http.ResponseWriter, r *http.Request) {
	ps, err := h.payments.ListByOrder(r.Context(), auth.CapabilityFrom(r.Context()), chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]paymentResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPaymentResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.payments.GetPayment(r.Context(), auth.CapabilityFrom(r.Context()), chi.URLParam(r, "paymentID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

func (h *Handler) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	if err := h.payments.DeletePayment(r.Context(), auth.CapabilityFrom(r.Context()), chi.URLParam(r, "paymentID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pageParams(r *http.Request) (page, size int) {
	q := r.URL.Query()
	page, _ = strconv.Atoi(q.Get("page"))
	size, _ = strconv.Atoi(q.Get("size"))
	return page, size
}
