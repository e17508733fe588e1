package handler

import (
	"net/http"
	"time"

	"spicesense/internal/model"
	"spicesense/pkg/database"
	"spicesense/pkg/jwtutil"
	"spicesense/pkg/logger"
	"spicesense/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// RegisterRequest carries a self-service registration. Role-specific fields
// are only honored for the matching role.
type RegisterRequest struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone"`
	Password        string `json:"password" validate:"required,min=6"`
	Role            string `json:"role" validate:"required"`
	CompanyName     string `json:"company_name"`
	CompanyAddress  string `json:"company_address"`
	DeliveryAddress string `json:"delivery_address"`
	Position        string `json:"position"`
}

// Register creates a new account with a bcrypt-hashed password.
func Register(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("auth", "register")

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		log.Warn("Invalid registration data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "name, email, password and role are required"})
	}
	if !model.ValidRole(req.Role) {
		log.Warn("Unknown role in registration", zap.String("role", req.Role))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid role"})
	}

	// Check if user already exists - track DB query
	defer prometheus.TrackDBOperation("query")(time.Now())
	var existingUser model.User
	result := database.GetDB().Where("email = ?", req.Email).First(&existingUser)
	if result.Error == nil {
		log.Warn("Email already registered", zap.String("email", req.Email))
		return c.JSON(http.StatusConflict, echo.Map{"success": false, "message": "email already registered"})
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "registration failed"})
	}

	user := model.User{
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		Password:        string(hashedPassword),
		Role:            req.Role,
		CompanyName:     req.CompanyName,
		CompanyAddress:  req.CompanyAddress,
		DeliveryAddress: req.DeliveryAddress,
		Position:        req.Position,
		IsActive:        true,
	}

	// Save to database - track DB insert operation
	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&user); result.Error != nil {
		log.Error("Failed to create user", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "registration failed"})
	}

	log.Info("User registered", zap.String("email", user.Email), zap.String("role", user.Role))
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "user registered successfully",
		"user": echo.Map{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

// Login verifies credentials and issues the auth token in an HTTP-only
// cookie as well as the response body.
func Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("auth", "login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}

	// Find user in database - track DB operation duration
	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	result := database.GetDB().Where("email = ?", req.Email).First(&user)
	if result.Error != nil {
		log.Warn("User not found", zap.String("email", req.Email))
		prometheus.RecordAuthError()
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "invalid credentials"})
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Warn("Invalid password", zap.String("email", req.Email))
		prometheus.RecordAuthError()
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "invalid credentials"})
	}

	if !user.IsActive {
		log.Warn("Deactivated account attempted login", zap.String("email", req.Email))
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "account is deactivated"})
	}

	token, err := jwtutil.GenerateToken(user.ID, user.Role, user.Email)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "token error"})
	}
	jwtutil.SetTokenCookie(c, token)

	log.Info("User logged in", zap.String("email", user.Email), zap.String("role", user.Role))
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"token":   token,
		"user": echo.Map{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

// Logout clears the auth cookie.
func Logout(c echo.Context) error {
	prometheus.RecordOperation("auth", "logout")
	jwtutil.ClearTokenCookie(c)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "logged out"})
}
