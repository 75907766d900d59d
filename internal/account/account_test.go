package account

import (
	"path/filepath"
	"strconv"
	"testing"

	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/db"
	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/domain"
	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/tabular"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	database, err := db.Open(filepath.Join(dir, "users.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(database))
	tab, err := tabular.Open(filepath.Join(dir, "data"))
	require.NoError(t, err)
	return NewStore(database, tab)
}

func createUser(t *testing.T, s *Store, username string) *domain.User {
	t.Helper()
	user, err := s.CreateUser(username, "secret123", username+"@example.com", "")
	require.NoError(t, err)
	return user
}

func TestCreateUser(t *testing.T) {
	s := newTestStore(t)
	user := createUser(t, s, "Juan")
	require.Equal(t, "juan", user.Username)
	require.Equal(t, "user", user.Role)
	require.NotEqual(t, "secret123", user.Password)
	require.Equal(t, int64(0), user.EwalletBalance)
}

func TestCreateUserDuplicateIsCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	createUser(t, s, "juan")
	_, err := s.CreateUser("JUAN", "other1234", "other@example.com", "")
	require.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestVerifyCredentials(t *testing.T) {
	s := newTestStore(t)
	created := createUser(t, s, "juan")

	user, err := s.VerifyCredentials("Juan", "secret123")
	require.NoError(t, err)
	require.Equal(t, created.ID, user.ID)

	// Login stamps last_login.
	reloaded, err := s.Get(created.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastLogin)

	_, err = s.VerifyCredentials("juan", "wrongpass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.VerifyCredentials("nobody", "secret123")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestClaimSignupBonusExactlyOnce(t *testing.T) {
	s := newTestStore(t)
	user := createUser(t, s, "juan")

	require.NoError(t, s.ClaimSignupBonus(user.ID))

	status, err := s.WalletStatus(user.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SignupBonus, status.EwalletBalance)
	require.True(t, status.SignupBonusClaimed)

	// A second claim fails and leaves the balance alone.
	require.ErrorIs(t, s.ClaimSignupBonus(user.ID), ErrBonusAlreadyClaimed)
	status, err = s.WalletStatus(user.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SignupBonus, status.EwalletBalance)

	// One ledger row with balances from the transaction itself.
	txs, err := s.Transactions(user.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, "bonus", txs[0]["transaction_type"])
	require.Equal(t, "0", txs[0]["balance_before"])
	require.Equal(t, strconv.FormatInt(domain.SignupBonus, 10), txs[0]["balance_after"])
}

func TestAddEarningsPromotesAtThreshold(t *testing.T) {
	s := newTestStore(t)
	user := createUser(t, s, "juan")

	// Just below the level-2 milestone: no promotion.
	promoted, err := s.AddEarnings(user.ID, domain.LevelTwoThreshold-1_000_00, "pupae_sale")
	require.NoError(t, err)
	require.False(t, promoted)

	// Crossing the milestone promotes and pays the prize.
	promoted, err = s.AddEarnings(user.ID, 1_500_00, "pupae_sale")
	require.NoError(t, err)
	require.True(t, promoted)

	status, err := s.WalletStatus(user.ID)
	require.NoError(t, err)
	require.Equal(t, 2, status.CommissionLevel)
	require.Equal(t, domain.LevelTwoPrize, status.EwalletBalance)
	require.Equal(t, domain.LevelTwoThreshold+500_00, status.TotalEarnings)

	coms, err := s.Commissions(user.ID)
	require.NoError(t, err)
	require.Len(t, coms, 1)
	require.Equal(t, "level_upgrade", coms[0]["source"])
	require.Equal(t, strconv.FormatInt(domain.LevelTwoThreshold, 10), coms[0]["earnings_milestone"])

	// Further earnings never promote again.
	promoted, err = s.AddEarnings(user.ID, 50_000_00, "pupae_sale")
	require.NoError(t, err)
	require.False(t, promoted)
	coms, err = s.Commissions(user.ID)
	require.NoError(t, err)
	require.Len(t, coms, 1)
}

func TestAddEarningsRejectsNonPositiveAmount(t *testing.T) {
	s := newTestStore(t)
	user := createUser(t, s, "juan")
	_, err := s.AddEarnings(user.ID, 0, "pupae_sale")
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = s.AddEarnings(user.ID, -5_00, "pupae_sale")
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestDebitWallet(t *testing.T) {
	s := newTestStore(t)
	user := createUser(t, s, "juan")
	require.NoError(t, s.ClaimSignupBonus(user.ID))

	require.NoError(t, s.DebitWallet(user.ID, 50_00, "pupae purchase"))
	status, err := s.WalletStatus(user.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SignupBonus-50_00, status.EwalletBalance)

	// Overdraw fails and leaves the balance unchanged.
	err = s.DebitWallet(user.ID, 1_000_00, "too much")
	require.ErrorIs(t, err, ErrInsufficientBalance)
	status, err = s.WalletStatus(user.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SignupBonus-50_00, status.EwalletBalance)
}

func TestTransactionsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	user := createUser(t, s, "juan")
	require.NoError(t, s.ClaimSignupBonus(user.ID))
	require.NoError(t, s.DebitWallet(user.ID, 50_00, "pupae purchase"))

	txs, err := s.Transactions(user.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	require.Equal(t, "purchase", txs[0]["transaction_type"])
	require.Equal(t, "bonus", txs[1]["transaction_type"])
}

func TestSubscribePremium(t *testing.T) {
	s := newTestStore(t)
	user := createUser(t, s, "juan")

	require.NoError(t, s.SubscribePremium(user.ID, ""))

	status, err := s.WalletStatus(user.ID)
	require.NoError(t, err)
	require.True(t, status.IsPremium)
	require.NotNil(t, status.PremiumStartDate)
	require.NotNil(t, status.PremiumEndDate)
	require.Equal(t, domain.PremiumDays,
		int(status.PremiumEndDate.Sub(*status.PremiumStartDate).Hours()/24))

	subs, err := s.tab.Search(tabular.TablePremiumSubs, tabular.Criteria{"username": "juan"})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, "monthly", subs[0]["subscription_type"])
	require.Equal(t, strconv.FormatInt(domain.PremiumMonthlyFee, 10), subs[0]["monthly_fee"])
}

func TestBreederEmails(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateUser("maria", "secret123", "maria@example.com", "breeder")
	require.NoError(t, err)
	_, err = s.CreateUser("nomail", "secret123", "", "breeder")
	require.NoError(t, err)
	createUser(t, s, "juan")

	contacts, err := s.BreederEmails()
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	require.Equal(t, "maria", contacts[0].Username)
}

func TestGetUnknownUser(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(9999)
	require.ErrorIs(t, err, ErrUserNotFound)
}
