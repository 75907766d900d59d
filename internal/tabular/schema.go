package tabular

import (
	"errors"
	"os"

	"github.com/samber/lo"       // Set operations
	"github.com/sirupsen/logrus" // Logging library
)

// Table names known to the registry.
const (
	TableBreedingBatches   = "breeding_batches"
	TableBreedingTasks     = "breeding_tasks"
	TableBreedingLog       = "breeding_log"
	TableAIClassifications = "ai_classifications"
	TablePOSTransactions   = "pos_transactions"
	TablePOSItems          = "pos_items"
	TablePupaeSales        = "pupae_sales"
	TablePupaePurchases    = "pupae_purchases"
	TableFarmBookings      = "farm_bookings"
	TableFarmReviews       = "farm_reviews"
	TablePremiumSubs       = "premium_subscriptions"
	TableCommissions       = "commissions"
	TableEwallet           = "ewallet_transactions"
)

// Schemas maps every known table to its canonical ordered column list.
// This registry is consulted when a table file is created and by
// ValidateStructure; Append validates against the live file header, so a
// file that drifted from the registry keeps working until validated.
var Schemas = map[string][]string{
	TableBreedingBatches: {
		"batch_id", "species", "stage", "larva_count", "health_status",
		"created_date", "created_by", "notes", "last_updated",
	},
	TableBreedingTasks: {
		"task_id", "title", "type", "priority", "due_date", "batch_id",
		"description", "status", "created_by", "created_date", "completed_date",
	},
	TableBreedingLog: {
		"timestamp", "event_type", "batch_id", "description", "logged_by",
	},
	TableAIClassifications: {
		"timestamp", "analysis_type", "user", "predicted_species",
		"species_confidence", "predicted_stage", "stage_confidence",
		"predicted_disease", "disease_confidence", "predicted_defect", "defect_confidence",
	},
	TablePOSTransactions: {
		"order_number", "date", "time", "cashier", "customer_name",
		"customer_email", "payment_method", "total_items", "total_revenue",
		"total_cost", "total_profit", "notes",
	},
	TablePOSItems: {
		"order_number", "date", "time", "item_id", "item_name", "species",
		"quantity", "unit_price", "unit_cost", "subtotal_revenue",
		"subtotal_profit", "cashier",
	},
	TablePupaeSales: {
		"sale_id", "sale_date", "seller_username", "buyer_name", "buyer_contact",
		"species", "stage", "quantity", "price_per_unit", "total_amount",
		"quality_grade", "payment_method", "notes", "recorded_at",
	},
	TablePupaePurchases: {
		"purchase_id", "purchase_date", "buyer_username", "seller_name",
		"seller_contact", "species", "stage", "quantity", "price_per_unit",
		"total_cost", "quality_received", "payment_method", "delivery_method",
		"notes", "recorded_at",
	},
	TableFarmBookings: {
		"booking_id", "farm_name", "farm_location", "visitor_name",
		"visitor_phone", "visitor_email", "visit_date", "visit_time",
		"num_visitors", "visit_purpose", "total_cost", "special_requests",
		"booking_status", "booked_by", "booking_date",
	},
	TableFarmReviews: {
		"review_id", "farm_name", "reviewer", "rating", "review_title",
		"review_text", "facilities_rating", "staff_rating", "value_rating",
		"experience_rating", "review_date",
	},
	TablePremiumSubs: {
		"user_id", "username", "subscription_type", "start_date", "end_date",
		"monthly_fee", "payment_status", "created_at",
	},
	TableCommissions: {
		"user_id", "username", "commission_amount", "source", "level",
		"earnings_milestone", "date_earned", "status",
	},
	TableEwallet: {
		"user_id", "username", "transaction_type", "amount", "description",
		"balance_before", "balance_after", "timestamp",
	},
}

// RegisteredTables returns the names of all registered tables.
func RegisteredTables() []string {
	return lo.Keys(Schemas)
}

// EnsureAll creates a header-only file for every registered table that
// does not yet have a backing file. Called at startup.
func (s *Store) EnsureAll() error {
	for table, cols := range Schemas {
		if _, err := os.Stat(s.Path(table)); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := s.writeAll(table, cols, nil); err != nil {
			return err
		}
		logrus.WithField("table", table).Info("Initialized table file")
	}
	return nil
}

// Validation reports how a table file's structure compares to a required
// column set.
type Validation struct {
	Valid          bool     `json:"valid"`
	MissingColumns []string `json:"missing_columns"`
	ExtraColumns   []string `json:"extra_columns"`
	RecordCount    int      `json:"record_count"`
	ColumnCount    int      `json:"column_count"`
	Error          string   `json:"error,omitempty"`
}

// ValidateStructure checks a table file against a required column list.
// An empty or absent file is reported invalid with all columns missing.
func (s *Store) ValidateStructure(table string, required []string) *Validation {
	header, recs, err := s.read(table)
	if err != nil {
		return &Validation{Valid: false, MissingColumns: required, Error: err.Error()}
	}
	if len(header) == 0 {
		return &Validation{
			Valid:          false,
			MissingColumns: required,
			Error:          "file is empty or does not exist",
		}
	}
	missing, extra := lo.Difference(required, header)
	v := &Validation{
		Valid:          len(missing) == 0,
		MissingColumns: missing,
		ExtraColumns:   extra,
		RecordCount:    len(recs),
		ColumnCount:    len(header),
	}
	if !v.Valid {
		v.Error = "missing required columns"
	}
	return v
}
