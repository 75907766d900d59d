package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/account"
	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/db"
	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/middleware"
	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/tabular"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func setupRouter(t *testing.T) (*gin.Engine, *account.Store, *tabular.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	database, err := db.Open(filepath.Join(dir, "users.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(database))
	tab, err := tabular.Open(filepath.Join(dir, "data"))
	require.NoError(t, err)
	accounts := account.NewStore(database, tab)

	r := gin.New()
	r.POST("/user", RegisterHandler(accounts))
	r.GET("/user", LoginHandler(accounts, testSecret))

	auth := r.Group("/", middleware.JWTAuthMiddleware(testSecret))
	auth.POST("/wallet/bonus", ClaimBonusHandler(accounts))
	auth.POST("/wallet/debit", DebitWalletHandler(accounts))
	auth.POST("/pos/checkout", CheckoutHandler(tab))
	auth.POST("/sales", RecordSaleHandler(tab, accounts))
	auth.GET("/sales", MySalesHandler(tab))
	auth.POST("/bookings", BookVisitHandler(tab))
	auth.POST("/bookings/:booking_id/cancel", CancelBookingHandler(tab))
	return r, accounts, tab
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func registerAndLogin(t *testing.T, r *gin.Engine, username string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/user", "", gin.H{
		"username": username, "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/user", "", gin.H{
		"username": username, "password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRegisterValidation(t *testing.T) {
	r, _, _ := setupRouter(t)

	tests := []struct {
		name string
		body gin.H
		want int
	}{
		{"valid", gin.H{"username": "juan", "password": "secret123"}, http.StatusCreated},
		{"duplicate username", gin.H{"username": "Juan", "password": "secret123"}, http.StatusBadRequest},
		{"username starts with digit", gin.H{"username": "1juan", "password": "secret123"}, http.StatusBadRequest},
		{"password too short", gin.H{"username": "maria", "password": "short"}, http.StatusBadRequest},
		{"missing password", gin.H{"username": "maria"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/user", "", tt.body)
			require.Equal(t, tt.want, w.Code)
		})
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	r, _, _ := setupRouter(t)
	registerAndLogin(t, r, "juan")

	w := doJSON(t, r, http.MethodGet, "/user", "", gin.H{
		"username": "juan", "password": "wrongpass",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	r, _, _ := setupRouter(t)
	w := doJSON(t, r, http.MethodPost, "/wallet/bonus", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPost, "/wallet/bonus", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBonusAndDebitFlow(t *testing.T) {
	r, accounts, _ := setupRouter(t)
	token := registerAndLogin(t, r, "juan")

	w := doJSON(t, r, http.MethodPost, "/wallet/bonus", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Claiming twice fails.
	w = doJSON(t, r, http.MethodPost, "/wallet/bonus", token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/wallet/debit", token, gin.H{
		"amount": 50_00, "description": "larval food",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Overdraw is rejected.
	w = doJSON(t, r, http.MethodPost, "/wallet/debit", token, gin.H{
		"amount": 10_000_00, "description": "too much",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	user, err := accounts.VerifyCredentials("juan", "secret123")
	require.NoError(t, err)
	require.Equal(t, int64(150_00), user.EwalletBalance)
}

func TestCheckout(t *testing.T) {
	r, _, tab := setupRouter(t)
	token := registerAndLogin(t, r, "juan")

	w := doJSON(t, r, http.MethodPost, "/pos/checkout", token, gin.H{
		"items":          []gin.H{{"item_id": 1, "quantity": 2}},
		"payment_method": "cash",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		OrderNumber  string `json:"order_number"`
		TotalItems   int    `json:"total_items"`
		TotalRevenue int64  `json:"total_revenue"`
		TotalProfit  int64  `json:"total_profit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.OrderNumber)
	require.Equal(t, 2, resp.TotalItems)
	item := Catalog[1]
	require.Equal(t, 2*item.Price, resp.TotalRevenue)
	require.Equal(t, 2*(item.Price-item.Cost), resp.TotalProfit)

	txs, err := tab.Load(tabular.TablePOSTransactions)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, resp.OrderNumber, txs[0]["order_number"])

	items, err := tab.Load(tabular.TablePOSItems)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestRecordSale(t *testing.T) {
	r, accounts, tab := setupRouter(t)
	token := registerAndLogin(t, r, "juan")

	w := doJSON(t, r, http.MethodPost, "/sales", token, gin.H{
		"buyer_name":     "Maria Santos",
		"species":        "Golden Birdwing",
		"quantity":       5,
		"price_per_unit": 20_00,
		"payment_method": "cash",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		SaleID      string `json:"sale_id"`
		TotalAmount int64  `json:"total_amount"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SaleID)
	require.Equal(t, int64(100_00), resp.TotalAmount)

	recs, err := tab.Load(tabular.TablePupaeSales)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "juan", recs[0]["seller_username"])
	require.Equal(t, "10000", recs[0]["total_amount"])

	// The sale total lands in the seller's cumulative earnings.
	user, err := accounts.VerifyCredentials("juan", "secret123")
	require.NoError(t, err)
	require.Equal(t, int64(100_00), user.TotalEarnings)
}

func TestMySalesScopedToSeller(t *testing.T) {
	r, _, _ := setupRouter(t)
	annToken := registerAndLogin(t, r, "ann")
	joannaToken := registerAndLogin(t, r, "joanna")

	sale := gin.H{
		"buyer_name": "Pedro Reyes", "species": "Common Mormon",
		"quantity": 2, "price_per_unit": 15_00,
	}
	w := doJSON(t, r, http.MethodPost, "/sales", annToken, sale)
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, r, http.MethodPost, "/sales", joannaToken, sale)
	require.Equal(t, http.StatusCreated, w.Code)

	// "ann" is a substring of "joanna"; each seller still only sees
	// their own rows.
	w = doJSON(t, r, http.MethodGet, "/sales", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Sales []map[string]string `json:"sales"`
		Total int                 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	require.Len(t, resp.Sales, 1)
	require.Equal(t, "ann", resp.Sales[0]["seller_username"])
}

func TestCancelBookingOwnership(t *testing.T) {
	r, _, tab := setupRouter(t)
	ownerToken := registerAndLogin(t, r, "juan")
	otherToken := registerAndLogin(t, r, "maria")

	w := doJSON(t, r, http.MethodPost, "/bookings", ownerToken, gin.H{
		"farm_name":    "Davao Butterfly House",
		"visitor_name": "Juan dela Cruz",
		"visit_date":   "2026-09-15",
		"num_visitors": 3,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		BookingID string `json:"booking_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.BookingID)

	// Another user cannot cancel someone else's booking.
	w = doJSON(t, r, http.MethodPost, "/bookings/"+created.BookingID+"/cancel", otherToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	recs, err := tab.Lookup(tabular.TableFarmBookings, "booking_id", created.BookingID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "Confirmed", recs[0]["booking_status"])

	w = doJSON(t, r, http.MethodPost, "/bookings/unknown-id/cancel", ownerToken, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/bookings/"+created.BookingID+"/cancel", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	recs, err = tab.Lookup(tabular.TableFarmBookings, "booking_id", created.BookingID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "Cancelled", recs[0]["booking_status"])
}

func TestCheckoutUnknownItem(t *testing.T) {
	r, _, _ := setupRouter(t)
	token := registerAndLogin(t, r, "juan")

	w := doJSON(t, r, http.MethodPost, "/pos/checkout", token, gin.H{
		"items":          []gin.H{{"item_id": 999, "quantity": 1}},
		"payment_method": "cash",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}
