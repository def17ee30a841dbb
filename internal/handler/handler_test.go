package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karomart/backend/internal/domain/catalog"
	"github.com/karomart/backend/internal/domain/wallet"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

func userToken(t *testing.T) string {
	return signToken(t, Claims{UserID: "u1", Email: "u1@example.com"})
}

func adminToken(t *testing.T) string {
	return signToken(t, Claims{AdminID: "a1"})
}

// stubProducts serves a fixed product list.
type stubProducts struct {
	catalog.ProductRepository

	products []catalog.Product
}

func (s *stubProducts) List(_ context.Context, _ catalog.ProductFilter) ([]catalog.Product, error) {
	return s.products, nil
}

func (s *stubProducts) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	for i := range s.products {
		if s.products[i].ID == id {
			return &s.products[i], nil
		}
	}
	return nil, catalog.ErrNotFound
}

// stubWallets serves a fixed wallet.
type stubWallets struct {
	wallet.Repository

	wallet  *wallet.Wallet
	entries []wallet.Entry
}

func (s *stubWallets) GetByUser(_ context.Context, userID string) (*wallet.Wallet, error) {
	if s.wallet == nil || s.wallet.UserID != userID {
		return nil, wallet.ErrNotFound
	}
	return s.wallet, nil
}

func (s *stubWallets) History(_ context.Context, _ string, _, _ int) ([]wallet.Entry, error) {
	return s.entries, nil
}

func testRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.Routes(r)
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, path, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w, body
}

func TestAuth_MissingToken(t *testing.T) {
	h := New(Config{JWTSecret: testSecret}, &stubProducts{}, nil, nil, nil, nil, nil, nil, nil)
	r := testRouter(h)

	w, body := doRequest(t, r, http.MethodGet, "/api/products", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestAuth_BadSignature(t *testing.T) {
	h := New(Config{JWTSecret: testSecret}, &stubProducts{}, nil, nil, nil, nil, nil, nil, nil)
	r := testRouter(h)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "u1"}).
		SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	w, _ := doRequest(t, r, http.MethodGet, "/api/products", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_UserTokenRejectedOnAdminRoute(t *testing.T) {
	h := New(Config{JWTSecret: testSecret}, &stubProducts{}, nil, nil, nil, nil, nil, nil, nil)
	r := testRouter(h)

	w, body := doRequest(t, r, http.MethodGet, "/api/admin/products", userToken(t))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "admin access required", body["message"])
}

func TestAuth_AdminTokenAccepted(t *testing.T) {
	h := New(Config{JWTSecret: testSecret}, &stubProducts{}, nil, nil, nil, nil, nil, nil, nil)
	r := testRouter(h)

	w, body := doRequest(t, r, http.MethodGet, "/api/admin/products", adminToken(t))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
}

func TestListProducts_ResolvesFinalPrice(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)
	products := &stubProducts{products: []catalog.Product{{
		ID:     "p1",
		Name:   "Mixer",
		Price:  decimal.NewFromInt(100),
		Stock:  5,
		Listed: true,
		Discount: &catalog.Discount{
			Name:  "festival",
			Type:  catalog.DiscountPercentage,
			Value: decimal.NewFromInt(20),
			Start: &start,
			End:   &end,
		},
	}}}
	h := New(Config{JWTSecret: testSecret}, products, nil, nil, nil, nil, nil, nil, nil)
	r := testRouter(h)

	w, body := doRequest(t, r, http.MethodGet, "/api/products", userToken(t))

	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].([]any)
	require.Len(t, data, 1)
	p := data[0].(map[string]any)
	assert.Equal(t, "80", p["finalPrice"])
	discount := p["discount"].(map[string]any)
	assert.Equal(t, "product", discount["source"])
}

func TestGetProduct_NotFound(t *testing.T) {
	h := New(Config{JWTSecret: testSecret}, &stubProducts{}, nil, nil, nil, nil, nil, nil, nil)
	r := testRouter(h)

	w, body := doRequest(t, r, http.MethodGet, "/api/products/nope", userToken(t))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "product not found", body["message"])
}

func TestGetWallet_MissingWalletIsZeroBalance(t *testing.T) {
	h := New(Config{JWTSecret: testSecret}, &stubProducts{}, nil, nil, nil, nil, nil, &stubWallets{}, nil)
	r := testRouter(h)

	w, body := doRequest(t, r, http.MethodGet, "/api/wallet", userToken(t))

	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "0", data["balance"])
	assert.Empty(t, data["entries"])
}

func TestGetWallet_ReturnsBalanceAndHistory(t *testing.T) {
	wallets := &stubWallets{
		wallet: &wallet.Wallet{ID: "w1", UserID: "u1", Balance: decimal.NewFromInt(250)},
		entries: []wallet.Entry{
			{ID: "e2", WalletID: "w1", Amount: decimal.NewFromInt(300), Reason: wallet.ReasonCancellationRefund},
			{ID: "e1", WalletID: "w1", Amount: decimal.NewFromInt(-50), Reason: wallet.ReasonOrderPayment},
		},
	}
	h := New(Config{JWTSecret: testSecret}, &stubProducts{}, nil, nil, nil, nil, nil, wallets, nil)
	r := testRouter(h)

	w, body := doRequest(t, r, http.MethodGet, "/api/wallet", userToken(t))

	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "250", data["balance"])
	assert.Len(t, data["entries"], 2)
}
