// Package account is the user/account store: authentication credentials
// and monetary state for each user, held in the embedded database and
// mirrored into the append-only ewallet/commission ledger tables.
package account

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/domain"
	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/tabular"

	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// Sentinel errors for constraint violations. Never fatal; handlers map
// them to user-facing failures.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrDuplicateUsername   = errors.New("username already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInsufficientBalance = errors.New("insufficient ewallet balance")
	ErrBonusAlreadyClaimed = errors.New("signup bonus already claimed")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// Store mutates user rows in the embedded database and appends every
// wallet movement to the ledger tables through the record store. Row
// updates are transactional; the ledger append runs after commit, so a
// crash in between loses the ledger row but never the balance.
type Store struct {
	db  *gorm.DB
	tab *tabular.Store
}

// NewStore returns an account store over the given database and record
// store.
func NewStore(database *gorm.DB, tab *tabular.Store) *Store {
	return &Store{db: database, tab: tab}
}

// CreateUser registers a new account with a bcrypt-hashed password.
// Usernames are lowercased so uniqueness is case-insensitive.
func (s *Store) CreateUser(username, password, email, role string) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if role == "" {
		role = "user"
	}
	user := domain.User{
		Username: strings.ToLower(username),
		Password: string(hash),
		Email:    email,
		Role:     role,
	}
	if err := s.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE") {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
	}).Info("User registered")
	return &user, nil
}

// VerifyCredentials checks a username/password pair against the stored
// hash and stamps last_login on success.
func (s *Store) VerifyCredentials(username, password string) (*domain.User, error) {
	var user domain.User
	if err := s.db.Where("username = ?", strings.ToLower(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	now := time.Now()
	if err := s.db.Model(&user).Update("last_login", &now).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Get returns a user by id.
func (s *Store) Get(userID uint) (*domain.User, error) {
	var user domain.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// WalletStatus is the point read of a user's premium and monetary state.
type WalletStatus struct {
	IsPremium          bool       `json:"is_premium"`
	PremiumStartDate   *time.Time `json:"premium_start_date"`
	PremiumEndDate     *time.Time `json:"premium_end_date"`
	TotalEarnings      int64      `json:"total_earnings"`
	CommissionLevel    int        `json:"commission_level"`
	EwalletBalance     int64      `json:"ewallet_balance"`
	SignupBonusClaimed bool       `json:"signup_bonus_claimed"`
}

// WalletStatus returns the user's premium/wallet snapshot.
func (s *Store) WalletStatus(userID uint) (*WalletStatus, error) {
	user, err := s.Get(userID)
	if err != nil {
		return nil, err
	}
	return &WalletStatus{
		IsPremium:          user.IsPremium,
		PremiumStartDate:   user.PremiumStartDate,
		PremiumEndDate:     user.PremiumEndDate,
		TotalEarnings:      user.TotalEarnings,
		CommissionLevel:    user.CommissionLevel,
		EwalletBalance:     user.EwalletBalance,
		SignupBonusClaimed: user.SignupBonusClaimed,
	}, nil
}

// ClaimSignupBonus credits the one-time welcome bonus. Exactly-once per
// user: the claimed flag is checked inside the transaction, so a repeat
// call fails with ErrBonusAlreadyClaimed and leaves the balance alone.
func (s *Store) ClaimSignupBonus(userID uint) error {
	var before, after int64
	var username string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user domain.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if user.SignupBonusClaimed {
			return ErrBonusAlreadyClaimed
		}
		before = user.EwalletBalance
		after = before + domain.SignupBonus
		username = user.Username
		return tx.Model(&user).Updates(map[string]interface{}{
			"ewallet_balance":      gorm.Expr("ewallet_balance + ?", domain.SignupBonus),
			"signup_bonus_claimed": true,
		}).Error
	})
	if err != nil {
		return err
	}
	s.appendLedger(userID, username, "bonus", domain.SignupBonus, "Signup bonus - Free 200 pesos", before, after)
	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"amount":  domain.SignupBonus,
	}).Info("Signup bonus claimed")
	return nil
}

// AddEarnings increments cumulative earnings and checks the level-2
// milestone. The promotion fires at most once: the level guard means a
// user already at level 2 only gets the earnings increment. Returns
// whether this call triggered the promotion.
func (s *Store) AddEarnings(userID uint, amount int64, source string) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}
	promoted := false
	var before, after int64
	var username string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user domain.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		username = user.Username
		if err := tx.Model(&user).
			Update("total_earnings", gorm.Expr("total_earnings + ?", amount)).Error; err != nil {
			return err
		}
		newTotal := user.TotalEarnings + amount
		if newTotal >= domain.LevelTwoThreshold && user.CommissionLevel < 2 {
			promoted = true
			before = user.EwalletBalance
			after = before + domain.LevelTwoPrize
			return tx.Model(&user).Updates(map[string]interface{}{
				"commission_level": 2,
				"ewallet_balance":  gorm.Expr("ewallet_balance + ?", domain.LevelTwoPrize),
			}).Error
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if promoted {
		s.appendCommission(userID, username, domain.LevelTwoPrize, "level_upgrade", 2, domain.LevelTwoThreshold)
		s.appendLedger(userID, username, "commission", domain.LevelTwoPrize,
			"Level 2 Achievement Prize - 20,000 pesos", before, after)
		logrus.WithFields(logrus.Fields{
			"user_id":   userID,
			"milestone": domain.LevelTwoThreshold,
			"prize":     domain.LevelTwoPrize,
		}).Info("Commission level 2 reached")
	}
	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"amount":  amount,
		"source":  source,
	}).Info("Earnings added")
	return promoted, nil
}

// DebitWallet spends from the ewallet balance. Fails with
// ErrInsufficientBalance and leaves the balance unchanged when the
// amount exceeds it.
func (s *Store) DebitWallet(userID uint, amount int64, description string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	var before, after int64
	var username string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user domain.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if user.EwalletBalance < amount {
			return ErrInsufficientBalance
		}
		before = user.EwalletBalance
		after = before - amount
		username = user.Username
		return tx.Model(&user).
			Update("ewallet_balance", gorm.Expr("ewallet_balance - ?", amount)).Error
	})
	if err != nil {
		return err
	}
	s.appendLedger(userID, username, "purchase", amount, description, before, after)
	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"amount":  amount,
	}).Info("Ewallet debited")
	return nil
}

// SubscribePremium opens a 30-day premium window on the user row and
// records the subscription. Resubscribing restarts the window.
func (s *Store) SubscribePremium(userID uint, subscriptionType string) error {
	if subscriptionType == "" {
		subscriptionType = "monthly"
	}
	start := time.Now()
	end := start.AddDate(0, 0, domain.PremiumDays)
	var username string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user domain.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		username = user.Username
		return tx.Model(&user).Updates(map[string]interface{}{
			"is_premium":         true,
			"premium_start_date": &start,
			"premium_end_date":   &end,
		}).Error
	})
	if err != nil {
		return err
	}
	rec := tabular.Record{
		"user_id":           strconv.FormatUint(uint64(userID), 10),
		"username":          username,
		"subscription_type": subscriptionType,
		"start_date":        start.Format("2006-01-02"),
		"end_date":          end.Format("2006-01-02"),
		"monthly_fee":       strconv.FormatInt(domain.PremiumMonthlyFee, 10),
		"payment_status":    "active",
		"created_at":        time.Now().Format(tabular.TimeLayout),
	}
	if err := s.tab.Append(tabular.TablePremiumSubs, rec); err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err.Error(),
		}).Warn("Failed to record premium subscription")
	}
	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"until":   end.Format("2006-01-02"),
	}).Info("Premium subscription activated")
	return nil
}

// BreederContact is an email address for the notification collaborator.
type BreederContact struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// BreederEmails lists all breeders with a non-empty email address. The
// email collaborator reads addresses only; nothing here sends mail.
func (s *Store) BreederEmails() ([]BreederContact, error) {
	var users []domain.User
	err := s.db.Where("role = ? AND email IS NOT NULL AND email != ''", "breeder").Find(&users).Error
	if err != nil {
		return nil, err
	}
	contacts := make([]BreederContact, 0, len(users))
	for _, u := range users {
		contacts = append(contacts, BreederContact{Username: u.Username, Email: u.Email})
	}
	return contacts, nil
}

// Transactions returns the user's ewallet ledger rows, newest first.
func (s *Store) Transactions(userID uint) ([]tabular.Record, error) {
	recs, err := s.tab.Lookup(tabular.TableEwallet, "user_id", strconv.FormatUint(uint64(userID), 10))
	if err != nil {
		return nil, err
	}
	// Ledger rows are append-ordered; reverse for newest first.
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

// Commissions returns the user's commission rows.
func (s *Store) Commissions(userID uint) ([]tabular.Record, error) {
	return s.tab.Lookup(tabular.TableCommissions, "user_id", strconv.FormatUint(uint64(userID), 10))
}

// appendLedger writes one ewallet transaction row. The before/after
// balances come from the user row read inside the mutating transaction,
// never from a caller.
func (s *Store) appendLedger(userID uint, username, txType string, amount int64, description string, before, after int64) {
	rec := tabular.Record{
		"user_id":          strconv.FormatUint(uint64(userID), 10),
		"username":         username,
		"transaction_type": txType,
		"amount":           strconv.FormatInt(amount, 10),
		"description":      description,
		"balance_before":   strconv.FormatInt(before, 10),
		"balance_after":    strconv.FormatInt(after, 10),
		"timestamp":        time.Now().Format(tabular.TimeLayout),
	}
	if err := s.tab.Append(tabular.TableEwallet, rec); err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"type":    txType,
			"error":   err.Error(),
		}).Warn("Failed to append ewallet ledger record")
	}
}

// appendCommission writes one commission row.
func (s *Store) appendCommission(userID uint, username string, amount int64, source string, level int, milestone int64) {
	rec := tabular.Record{
		"user_id":            strconv.FormatUint(uint64(userID), 10),
		"username":           username,
		"commission_amount":  strconv.FormatInt(amount, 10),
		"source":             source,
		"level":              strconv.Itoa(level),
		"earnings_milestone": strconv.FormatInt(milestone, 10),
		"date_earned":        time.Now().Format("2006-01-02"),
		"status":             "approved",
	}
	if err := s.tab.Append(tabular.TableCommissions, rec); err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err.Error(),
		}).Warn("Failed to append commission record")
	}
}
