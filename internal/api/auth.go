package api

import (
	"errors"
	"net/http" // HTTP status codes
	"regexp"   // Username validation

	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/account"
	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/utils"

	"github.com/gin-gonic/gin" // Gin web framework
)

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"` // Username must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
	Email    string `json:"email"`                       // Optional contact email
	Role     string `json:"role"`                        // admin/breeder/student/purchaser/enthusiast
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries the session token.
type AuthResponse struct {
	Token string `json:"token"` // JWT token
}

var usernameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// isValidUsername checks the username shape: a letter followed by
// letters, digits or underscores.
func isValidUsername(username string) bool {
	return usernameRe.MatchString(username)
}

// isValidPassword checks if the password length is between 8 and 64 characters
func isValidPassword(password string) bool {
	return len(password) >= 8 && len(password) <= 64
}

// RegisterHandler creates a new account
func RegisterHandler(accounts *account.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if !isValidUsername(req.Username) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username must start with a letter and contain only letters, digits or underscores"})
			return
		}
		if !isValidPassword(req.Password) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be 8-64 characters"})
			return
		}
		user, err := accounts.CreateUser(req.Username, req.Password, req.Email, req.Role)
		if err != nil {
			if errors.Is(err, account.ErrDuplicateUsername) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user_id": user.ID})
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(accounts *account.Store, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		user, err := accounts.VerifyCredentials(req.Username, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		token, err := utils.GenerateJWT(user.ID, user.Username, jwtSecret)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		c.JSON(http.StatusOK, AuthResponse{Token: token})
	}
}

// currentUser pulls the authenticated identity out of the request
// context. The boolean is false when the JWT middleware did not run.
func currentUser(c *gin.Context) (uint, string, bool) {
	id, ok := c.Get("userID")
	if !ok {
		return 0, "", false
	}
	name, _ := c.Get("username")
	username, _ := name.(string)
	return id.(uint), username, true
}
