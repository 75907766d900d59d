package api

import (
	"errors"
	"net/http" // HTTP status codes
	"strconv"  // Numeric field formatting
	"time"

	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/tabular"

	"github.com/gin-gonic/gin" // Gin web framework
	"github.com/google/uuid"   // Booking/review identifiers
	"github.com/samber/lo"     // Farm lookup
)

// Farm is one bookable butterfly farm with a per-person rate in
// centavos.
type Farm struct {
	Name           string `json:"name"`
	Location       string `json:"location"`
	PricePerPerson int64  `json:"price_per_person"`
}

// Farms is the fixed catalog of bookable farms.
var Farms = []Farm{
	{"Marinduque Butterfly Sanctuary", "Gasan, Marinduque", 150_00},
	{"Bohol Butterfly Conservation Center", "Bilar, Bohol", 120_00},
	{"Davao Butterfly House", "Davao City", 100_00},
	{"Palawan Butterfly Ecological Garden", "Puerto Princesa", 180_00},
}

// FarmListHandler returns the bookable farm catalog.
func FarmListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"farms": Farms})
	}
}

// BookVisitRequest books a farm visit.
type BookVisitRequest struct {
	FarmName        string `json:"farm_name" binding:"required"`
	VisitorName     string `json:"visitor_name" binding:"required"`
	VisitorPhone    string `json:"visitor_phone"`
	VisitorEmail    string `json:"visitor_email"`
	VisitDate       string `json:"visit_date" binding:"required"` // YYYY-MM-DD
	VisitTime       string `json:"visit_time"`
	NumVisitors     int    `json:"num_visitors" binding:"required,gt=0"`
	VisitPurpose    string `json:"visit_purpose"`
	SpecialRequests string `json:"special_requests"`
}

// BookVisitHandler creates a farm booking; the total is visitors times
// the farm's per-person rate.
func BookVisitHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, username, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req BookVisitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		farm, found := lo.Find(Farms, func(f Farm) bool { return f.Name == req.FarmName })
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown farm"})
			return
		}
		totalCost := farm.PricePerPerson * int64(req.NumVisitors)
		bookingID := uuid.NewString()
		rec := tabular.Record{
			"booking_id":       bookingID,
			"farm_name":        farm.Name,
			"farm_location":    farm.Location,
			"visitor_name":     req.VisitorName,
			"visitor_phone":    req.VisitorPhone,
			"visitor_email":    req.VisitorEmail,
			"visit_date":       req.VisitDate,
			"visit_time":       req.VisitTime,
			"num_visitors":     strconv.Itoa(req.NumVisitors),
			"visit_purpose":    req.VisitPurpose,
			"total_cost":       strconv.FormatInt(totalCost, 10),
			"special_requests": req.SpecialRequests,
			"booking_status":   "Confirmed",
			"booked_by":        username,
			"booking_date":     time.Now().Format(tabular.TimeLayout),
		}
		if err := tab.Append(tabular.TableFarmBookings, rec); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create booking"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message":    "Booking confirmed",
			"booking_id": bookingID,
			"total_cost": totalCost,
		})
	}
}

// MyBookingsHandler lists the authenticated user's bookings.
func MyBookingsHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, username, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		recs, err := tab.Lookup(tabular.TableFarmBookings, "booked_by", username)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load bookings"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"bookings": recs, "total": len(recs)})
	}
}

// CancelBookingHandler marks a booking cancelled. Only the user who
// made the booking may cancel it.
func CancelBookingHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, username, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		bookingID := c.Param("booking_id")
		recs, err := tab.Lookup(tabular.TableFarmBookings, "booking_id", bookingID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load booking"})
			return
		}
		if len(recs) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
			return
		}
		if recs[0]["booked_by"] != username {
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only cancel your own bookings"})
			return
		}
		n, err := tab.Update(tabular.TableFarmBookings, "booking_id", bookingID,
			tabular.Record{"booking_status": "Cancelled"})
		if err != nil {
			if errors.Is(err, tabular.ErrNoMatch) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel booking"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Booking cancelled", "updated": n})
	}
}

// ReviewRequest is one farm review with 1-5 ratings.
type ReviewRequest struct {
	FarmName         string `json:"farm_name" binding:"required"`
	Rating           int    `json:"rating" binding:"required,min=1,max=5"`
	ReviewTitle      string `json:"review_title"`
	ReviewText       string `json:"review_text"`
	FacilitiesRating int    `json:"facilities_rating" binding:"omitempty,min=1,max=5"`
	StaffRating      int    `json:"staff_rating" binding:"omitempty,min=1,max=5"`
	ValueRating      int    `json:"value_rating" binding:"omitempty,min=1,max=5"`
	ExperienceRating int    `json:"experience_rating" binding:"omitempty,min=1,max=5"`
}

// SubmitReviewHandler appends a farm review.
func SubmitReviewHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, username, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req ReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		reviewID := uuid.NewString()
		rec := tabular.Record{
			"review_id":         reviewID,
			"farm_name":         req.FarmName,
			"reviewer":          username,
			"rating":            strconv.Itoa(req.Rating),
			"review_title":      req.ReviewTitle,
			"review_text":       req.ReviewText,
			"facilities_rating": strconv.Itoa(req.FacilitiesRating),
			"staff_rating":      strconv.Itoa(req.StaffRating),
			"value_rating":      strconv.Itoa(req.ValueRating),
			"experience_rating": strconv.Itoa(req.ExperienceRating),
			"review_date":       time.Now().Format("2006-01-02"),
		}
		if err := tab.Append(tabular.TableFarmReviews, rec); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit review"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Review submitted", "review_id": reviewID})
	}
}

// FarmReviewsHandler lists reviews, optionally filtered by farm name.
func FarmReviewsHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		criteria := tabular.Criteria{}
		if v := c.Query("farm"); v != "" {
			criteria["farm_name"] = v
		}
		recs, err := tab.Search(tabular.TableFarmReviews, criteria)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load reviews"})
			return
		}
		avg := 0.0
		for _, r := range recs {
			n, _ := strconv.Atoi(r["rating"])
			avg += float64(n)
		}
		if len(recs) > 0 {
			avg /= float64(len(recs))
		}
		c.JSON(http.StatusOK, gin.H{"reviews": recs, "total": len(recs), "average_rating": avg})
	}
}
