package domain

import "time"

// Monetary constants, in centavos.
const (
	// SignupBonus is the one-time welcome credit.
	SignupBonus int64 = 200_00
	// PremiumMonthlyFee is the monthly premium subscription fee.
	PremiumMonthlyFee int64 = 299_00
	// PremiumDays is the length of one premium subscription window.
	PremiumDays = 30
	// LevelTwoThreshold is the cumulative earnings milestone that
	// promotes a breeder to commission level 2.
	LevelTwoThreshold int64 = 260_000_00
	// LevelTwoPrize is the one-time prize credited on promotion.
	LevelTwoPrize int64 = 20_000_00
)

// User Model. One row per account: authentication credentials plus the
// premium/wallet state mutated by the account store. Monetary fields are
// int64 centavos.
type User struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`              // Primary key
	Username           string     `gorm:"unique;not null" json:"username"`   // Unique username
	Password           string     `gorm:"not null" json:"-"`                 // Bcrypt password hash
	Email              string     `json:"email"`                             // Contact email
	Role               string     `gorm:"default:user" json:"role"`          // admin/breeder/student/purchaser/enthusiast
	IsPremium          bool       `gorm:"default:false" json:"is_premium"`   // Premium flag
	PremiumStartDate   *time.Time `json:"premium_start_date"`                // Premium window start
	PremiumEndDate     *time.Time `json:"premium_end_date"`                  // Premium window end
	TotalEarnings      int64      `gorm:"default:0" json:"total_earnings"`   // Cumulative earnings, centavos
	CommissionLevel    int        `gorm:"default:1" json:"commission_level"` // 1 or 2
	EwalletBalance     int64      `gorm:"default:0" json:"ewallet_balance"`  // Wallet balance, centavos
	SignupBonusClaimed bool       `gorm:"default:false" json:"signup_bonus_claimed"`
	CreatedAt          time.Time  `json:"created_at"`
	LastLogin          *time.Time `json:"last_login"`
}
