package api

import (
	"fmt"       // Identifier formatting
	"math/rand" // Order/sale id suffixes
	"net/http"  // HTTP status codes
	"strconv"   // Numeric field formatting
	"time"

	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/account"
	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/tabular"

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/samber/lo"       // Per-species grouping
	"github.com/sirupsen/logrus" // Logging library
)

// RecordSaleRequest records one pupae sale. Prices are centavos.
type RecordSaleRequest struct {
	SaleDate      string `json:"sale_date"`                        // YYYY-MM-DD, defaults to today
	BuyerName     string `json:"buyer_name" binding:"required"`    // Buyer name
	BuyerContact  string `json:"buyer_contact"`                    // Phone or email
	Species       string `json:"species" binding:"required"`       // Butterfly species
	Stage         string `json:"stage"`                            // Pupae stage sold
	Quantity      int    `json:"quantity" binding:"required,gt=0"` // Units sold
	PricePerUnit  int64  `json:"price_per_unit" binding:"required,gt=0"`
	QualityGrade  string `json:"quality_grade"`
	PaymentMethod string `json:"payment_method"`
	Notes         string `json:"notes"`
}

// RecordSaleHandler appends a pupae sale and credits the total to the
// seller's cumulative earnings.
func RecordSaleHandler(tab *tabular.Store, accounts *account.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, username, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req RecordSaleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if req.SaleDate == "" {
			req.SaleDate = time.Now().Format("2006-01-02")
		}
		total := int64(req.Quantity) * req.PricePerUnit
		saleID := fmt.Sprintf("SALE%s%04d", time.Now().Format("20060102150405"), rand.Intn(10000))
		rec := tabular.Record{
			"sale_id":         saleID,
			"sale_date":       req.SaleDate,
			"seller_username": username,
			"buyer_name":      req.BuyerName,
			"buyer_contact":   req.BuyerContact,
			"species":         req.Species,
			"stage":           req.Stage,
			"quantity":        strconv.Itoa(req.Quantity),
			"price_per_unit":  strconv.FormatInt(req.PricePerUnit, 10),
			"total_amount":    strconv.FormatInt(total, 10),
			"quality_grade":   req.QualityGrade,
			"payment_method":  req.PaymentMethod,
			"notes":           req.Notes,
			"recorded_at":     time.Now().Format(tabular.TimeLayout),
		}
		if err := tab.Append(tabular.TablePupaeSales, rec); err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,
				"error":   err.Error(),
			}).Error("Failed to record sale")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record sale"})
			return
		}
		promoted, err := accounts.AddEarnings(userID, total, "sales")
		if err != nil {
			// The sale row is already durable; earnings failure degrades
			// to a warning for this one interaction.
			logrus.WithFields(logrus.Fields{
				"user_id": userID,
				"amount":  total,
				"error":   err.Error(),
			}).Warn("Failed to credit sale earnings")
		}
		invalidateWallet(c, userID)
		resp := gin.H{"message": "Sale recorded successfully", "sale_id": saleID, "total_amount": total}
		if promoted {
			resp["promotion"] = "Congratulations! You've reached Level 2 and earned 20,000 pesos!"
		}
		c.JSON(http.StatusCreated, resp)
	}
}

// MySalesHandler lists the authenticated user's sales.
func MySalesHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, username, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		recs, err := tab.Lookup(tabular.TablePupaeSales, "seller_username", username)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load sales"})
			return
		}
		var revenue int64
		for _, r := range recs {
			amt, _ := strconv.ParseInt(r["total_amount"], 10, 64)
			revenue += amt
		}
		c.JSON(http.StatusOK, gin.H{"sales": recs, "total": len(recs), "total_revenue": revenue})
	}
}

// RecordPurchaseRequest records one pupae purchase from an outside
// seller. Prices are centavos.
type RecordPurchaseRequest struct {
	PurchaseDate    string `json:"purchase_date"`
	SellerName      string `json:"seller_name" binding:"required"`
	SellerContact   string `json:"seller_contact"`
	Species         string `json:"species" binding:"required"`
	Stage           string `json:"stage"`
	Quantity        int    `json:"quantity" binding:"required,gt=0"`
	PricePerUnit    int64  `json:"price_per_unit" binding:"required,gt=0"`
	QualityReceived string `json:"quality_received"`
	PaymentMethod   string `json:"payment_method"`
	DeliveryMethod  string `json:"delivery_method"`
	Notes           string `json:"notes"`
}

// RecordPurchaseHandler appends a pupae purchase record.
func RecordPurchaseHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, username, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req RecordPurchaseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if req.PurchaseDate == "" {
			req.PurchaseDate = time.Now().Format("2006-01-02")
		}
		total := int64(req.Quantity) * req.PricePerUnit
		purchaseID := fmt.Sprintf("PUR%s%04d", time.Now().Format("20060102150405"), rand.Intn(10000))
		rec := tabular.Record{
			"purchase_id":      purchaseID,
			"purchase_date":    req.PurchaseDate,
			"buyer_username":   username,
			"seller_name":      req.SellerName,
			"seller_contact":   req.SellerContact,
			"species":          req.Species,
			"stage":            req.Stage,
			"quantity":         strconv.Itoa(req.Quantity),
			"price_per_unit":   strconv.FormatInt(req.PricePerUnit, 10),
			"total_cost":       strconv.FormatInt(total, 10),
			"quality_received": req.QualityReceived,
			"payment_method":   req.PaymentMethod,
			"delivery_method":  req.DeliveryMethod,
			"notes":            req.Notes,
			"recorded_at":      time.Now().Format(tabular.TimeLayout),
		}
		if err := tab.Append(tabular.TablePupaePurchases, rec); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record purchase"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Purchase recorded successfully", "purchase_id": purchaseID, "total_cost": total})
	}
}

// MyPurchasesHandler lists the authenticated user's purchases.
func MyPurchasesHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, username, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		recs, err := tab.Lookup(tabular.TablePupaePurchases, "buyer_username", username)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load purchases"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"purchases": recs, "total": len(recs)})
	}
}

// speciesSummary aggregates sales volume and revenue for one species.
type speciesSummary struct {
	Species  string `json:"species"`
	Sales    int    `json:"sales"`
	Quantity int    `json:"quantity"`
	Revenue  int64  `json:"revenue"`
}

// SalesAnalyticsHandler summarizes all recorded sales by species.
func SalesAnalyticsHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		recs, err := tab.Load(tabular.TablePupaeSales)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load sales"})
			return
		}
		grouped := lo.GroupBy(recs, func(r tabular.Record) string { return r["species"] })
		summaries := make([]speciesSummary, 0, len(grouped))
		var totalRevenue int64
		for species, rows := range grouped {
			s := speciesSummary{Species: species, Sales: len(rows)}
			for _, r := range rows {
				qty, _ := strconv.Atoi(r["quantity"])
				amt, _ := strconv.ParseInt(r["total_amount"], 10, 64)
				s.Quantity += qty
				s.Revenue += amt
			}
			totalRevenue += s.Revenue
			summaries = append(summaries, s)
		}
		c.JSON(http.StatusOK, gin.H{
			"species":       summaries,
			"total_sales":   len(recs),
			"total_revenue": totalRevenue,
		})
	}
}
