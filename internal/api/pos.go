package api

import (
	"fmt"       // Order number formatting
	"math/rand" // Order number suffix
	"net/http"  // HTTP status codes
	"strconv"   // Numeric field formatting
	"time"

	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/tabular"

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// CatalogItem is one sellable butterfly/moth item. Price and cost are
// centavos.
type CatalogItem struct {
	ID      int    `json:"item_id"`
	Name    string `json:"name"`
	Price   int64  `json:"price"`
	Cost    int64  `json:"cost"`
	Species string `json:"species"`
}

// Catalog is the fixed point-of-sale price list.
var Catalog = map[int]CatalogItem{
	1:  {1, "Clipper", 23_00, 10_00, "Butterfly-Clippers"},
	2:  {2, "Common Jay", 35_00, 15_00, "Butterfly-Common Jay"},
	3:  {3, "Common Lime", 43_00, 20_00, "Butterfly-Common Lime"},
	4:  {4, "Common Mime", 65_00, 30_00, "Butterfly-Common Mime"},
	5:  {5, "Common Mormon", 48_00, 22_00, "Butterfly-Common Mormon"},
	6:  {6, "Emerald Swallowtail", 65_00, 32_00, "Butterfly-Emerald Swallowtail"},
	7:  {7, "Gray Glassy Tiger", 78_00, 38_00, "Butterfly-Gray Glassy Tiger"},
	8:  {8, "Great Eggfly", 89_00, 45_00, "Butterfly-Great Eggfly"},
	9:  {9, "Great Yellow Mormon", 71_00, 35_00, "Butterfly-Great Yellow Mormon"},
	10: {10, "Golden Birdwing", 73_00, 36_00, "Butterfly-Golden Birdwing"},
	11: {11, "Paper Kite", 81_00, 40_00, "Butterfly-Paper Kite"},
	12: {12, "Pink Rose", 34_00, 16_00, "Butterfly-Pink Rose"},
	13: {13, "Plain Tiger", 39_00, 18_00, "Butterfly-Plain Tiger"},
	14: {14, "Red Lacewing", 100_00, 50_00, "Butterfly-Red Lacewing"},
	15: {15, "Scarlet Mormon", 85_00, 42_00, "Butterfly-Scarlet Mormon"},
	16: {16, "Tailed Jay", 45_00, 21_00, "Butterfly-Tailed Jay"},
	17: {17, "Atlas Moth", 75_00, 37_00, "Moth-Atlas"},
	18: {18, "Giant Silk Moth", 80_00, 39_00, "Moth-Giant Silk"},
}

// CatalogHandler returns the item price list.
func CatalogHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		items := make([]CatalogItem, 0, len(Catalog))
		for i := 1; i <= len(Catalog); i++ {
			items = append(items, Catalog[i])
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

// CartLine is one line of a checkout cart. The cart travels in the
// request body; there is no server-side cart state.
type CartLine struct {
	ItemID   int `json:"item_id" binding:"required"`
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// CheckoutRequest is a full point-of-sale checkout.
type CheckoutRequest struct {
	Items         []CartLine `json:"items" binding:"required,min=1"`
	CustomerName  string     `json:"customer_name"`
	CustomerEmail string     `json:"customer_email"`
	PaymentMethod string     `json:"payment_method" binding:"required"`
	Notes         string     `json:"notes"`
}

// generateOrderNumber builds an ORD<yyyymmdd><4 digits> order number.
func generateOrderNumber() string {
	return fmt.Sprintf("ORD%s%04d", time.Now().Format("20060102"), rand.Intn(10000))
}

// CheckoutHandler processes a sale: computes revenue/cost/profit totals
// from the catalog, appends one transaction row and one row per item.
func CheckoutHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, username, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if req.CustomerName == "" {
			req.CustomerName = "Walk-in Customer"
		}

		var totalItems int
		var totalRevenue, totalCost int64
		for _, line := range req.Items {
			item, ok := Catalog[line.ItemID]
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown item id %d", line.ItemID)})
				return
			}
			totalItems += line.Quantity
			totalRevenue += item.Price * int64(line.Quantity)
			totalCost += item.Cost * int64(line.Quantity)
		}
		totalProfit := totalRevenue - totalCost

		orderNumber := generateOrderNumber()
		now := time.Now()
		date, clock := now.Format("2006-01-02"), now.Format("15:04:05")

		txRec := tabular.Record{
			"order_number":   orderNumber,
			"date":           date,
			"time":           clock,
			"cashier":        username,
			"customer_name":  req.CustomerName,
			"customer_email": req.CustomerEmail,
			"payment_method": req.PaymentMethod,
			"total_items":    strconv.Itoa(totalItems),
			"total_revenue":  strconv.FormatInt(totalRevenue, 10),
			"total_cost":     strconv.FormatInt(totalCost, 10),
			"total_profit":   strconv.FormatInt(totalProfit, 10),
			"notes":          req.Notes,
		}
		if err := tab.Append(tabular.TablePOSTransactions, txRec); err != nil {
			logrus.WithFields(logrus.Fields{
				"order_number": orderNumber,
				"error":        err.Error(),
			}).Error("Failed to save transaction")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment processing failed"})
			return
		}
		for _, line := range req.Items {
			item := Catalog[line.ItemID]
			itemRec := tabular.Record{
				"order_number":     orderNumber,
				"date":             date,
				"time":             clock,
				"item_id":          strconv.Itoa(item.ID),
				"item_name":        item.Name,
				"species":          item.Species,
				"quantity":         strconv.Itoa(line.Quantity),
				"unit_price":       strconv.FormatInt(item.Price, 10),
				"unit_cost":        strconv.FormatInt(item.Cost, 10),
				"subtotal_revenue": strconv.FormatInt(item.Price*int64(line.Quantity), 10),
				"subtotal_profit":  strconv.FormatInt((item.Price-item.Cost)*int64(line.Quantity), 10),
				"cashier":          username,
			}
			if err := tab.Append(tabular.TablePOSItems, itemRec); err != nil {
				logrus.WithFields(logrus.Fields{
					"order_number": orderNumber,
					"item_id":      item.ID,
					"error":        err.Error(),
				}).Warn("Failed to save transaction item")
			}
		}

		logrus.WithFields(logrus.Fields{
			"order_number":  orderNumber,
			"cashier":       username,
			"total_items":   totalItems,
			"total_revenue": totalRevenue,
		}).Info("Payment processed")
		c.JSON(http.StatusCreated, gin.H{
			"message":       "Payment processed successfully",
			"order_number":  orderNumber,
			"total_items":   totalItems,
			"total_revenue": totalRevenue,
			"total_cost":    totalCost,
			"total_profit":  totalProfit,
		})
	}
}

// TransactionListHandler lists point-of-sale transactions, optionally
// filtered by cashier or order number.
func TransactionListHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		criteria := tabular.Criteria{}
		if v := c.Query("cashier"); v != "" {
			criteria["cashier"] = v
		}
		if v := c.Query("order_number"); v != "" {
			criteria["order_number"] = v
		}
		recs, err := tab.Search(tabular.TablePOSTransactions, criteria)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transactions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"transactions": recs, "total": len(recs)})
	}
}

// OrderItemsHandler lists the line items of one order.
func OrderItemsHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderNumber := c.Param("order_number")
		recs, err := tab.Lookup(tabular.TablePOSItems, "order_number", orderNumber)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order items"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"order_number": orderNumber, "items": recs})
	}
}
