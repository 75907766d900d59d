package api

import (
	"context"  // Context for Redis operations
	"errors"   // Sentinel checks
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Cache TTLs

	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/account"
	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/utils"

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// walletCacheKey is the cache entry for one user's wallet status.
func walletCacheKey(userID uint) string {
	return utils.CacheKey("wallet", "user", strconv.Itoa(int(userID)))
}

// invalidateWallet drops the cached wallet status after a mutation.
func invalidateWallet(c *gin.Context, userID uint) {
	if v, exists := c.Get("redisClient"); exists {
		if rdb, ok := v.(*redis.Client); ok {
			_ = utils.DeleteCache(context.Background(), rdb, walletCacheKey(userID))
		}
	}
}

// WalletStatusHandler returns the premium/wallet snapshot for the
// authenticated user, cached for 60 seconds.
func WalletStatusHandler(accounts *account.Store, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		ctx := context.Background()
		cacheKey := walletCacheKey(userID)
		var status account.WalletStatus
		found, err := utils.GetCache(ctx, rdb, cacheKey, &status)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"wallet": status, "cached": true})
			return
		}
		fresh, err := accounts.WalletStatus(userID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, fresh, 60*time.Second)
		c.JSON(http.StatusOK, gin.H{"wallet": fresh, "cached": false})
	}
}

// ClaimBonusHandler credits the one-time signup bonus.
func ClaimBonusHandler(accounts *account.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if err := accounts.ClaimSignupBonus(userID); err != nil {
			if errors.Is(err, account.ErrBonusAlreadyClaimed) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Signup bonus already claimed"})
				return
			}
			logrus.WithFields(logrus.Fields{
				"user_id": userID,
				"error":   err.Error(),
			}).Error("Claim bonus failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to claim bonus"})
			return
		}
		invalidateWallet(c, userID)
		c.JSON(http.StatusOK, gin.H{"message": "200 pesos signup bonus added to your ewallet!"})
	}
}

// DebitRequest spends from the ewallet.
type DebitRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"` // Centavos
	Description string `json:"description"`
}

// DebitWalletHandler pays for an in-system purchase from the ewallet.
func DebitWalletHandler(accounts *account.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req DebitRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Amount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}
		if req.Description == "" {
			req.Description = "Pupae purchase"
		}
		if err := accounts.DebitWallet(userID, req.Amount, req.Description); err != nil {
			if errors.Is(err, account.ErrInsufficientBalance) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient ewallet balance"})
				return
			}
			logrus.WithFields(logrus.Fields{
				"user_id": userID,
				"amount":  req.Amount,
				"error":   err.Error(),
			}).Error("Wallet debit failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process purchase"})
			return
		}
		invalidateWallet(c, userID)
		c.JSON(http.StatusOK, gin.H{"message": "Purchase successful"})
	}
}

// SubscribeRequest opens a premium window.
type SubscribeRequest struct {
	SubscriptionType string `json:"subscription_type"` // Defaults to monthly
}

// SubscribePremiumHandler activates a 30-day premium subscription.
func SubscribePremiumHandler(accounts *account.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req SubscribeRequest
		_ = c.ShouldBindJSON(&req) // Body optional
		if err := accounts.SubscribePremium(userID, req.SubscriptionType); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to activate premium subscription"})
			return
		}
		invalidateWallet(c, userID)
		c.JSON(http.StatusOK, gin.H{"message": "Premium subscription activated!"})
	}
}

// TransactionHistoryHandler lists the authenticated user's ewallet
// ledger rows, newest first.
func TransactionHistoryHandler(accounts *account.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		recs, err := accounts.Transactions(userID)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,
				"error":   err.Error(),
			}).Warn("Failed to load ewallet ledger")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transactions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"transactions": recs, "total": len(recs)})
	}
}

// CommissionHistoryHandler lists the authenticated user's commissions.
func CommissionHistoryHandler(accounts *account.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		recs, err := accounts.Commissions(userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load commissions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"commissions": recs, "total": len(recs)})
	}
}
