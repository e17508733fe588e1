package handler

import (
	"net/http"
	"strconv"
	"time"

	"spicesense/internal/model"
	"spicesense/pkg/database"
	"spicesense/pkg/logger"
	"spicesense/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// GetData returns the authenticated user's own record.
func GetData(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("user", "get_self")

	userID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "authentication required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	if result := database.GetDB().First(&user, userID); result.Error != nil {
		log.Error("Authenticated user not found", zap.Uint("user_id", userID))
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "user not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": user})
}

// GetAllUsers lists every account, paginated via page/limit.
func GetAllUsers(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("user", "list")

	// Parse query parameters for pagination
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page <= 0 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20 // Default limit
	}
	offset := (page - 1) * limit

	defer prometheus.TrackDBOperation("query")(time.Now())
	var users []model.User
	result := database.GetDB().
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&users)
	if result.Error != nil {
		log.Error("Failed to retrieve users", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to retrieve users"})
	}

	var total int64
	database.GetDB().Model(&model.User{}).Count(&total)

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"users":   users,
		"pagination": echo.Map{
			"current_page": page,
			"limit":        limit,
			"total":        total,
			"total_pages":  (int(total) + limit - 1) / limit,
		},
	})
}

// GetUsersByRole lists all accounts carrying the given role.
func GetUsersByRole(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("user", "list_by_role")

	role := c.Param("role")
	if !model.ValidRole(role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid role"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var users []model.User
	if result := database.GetDB().Where("role = ?", role).Order("created_at desc").Find(&users); result.Error != nil {
		log.Error("Failed to retrieve users by role", zap.String("role", role), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to retrieve users"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "users": users})
}

// UpdateUserRequest carries an admin edit of another account.
type UpdateUserRequest struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Role            string `json:"role"`
	CompanyName     string `json:"company_name"`
	CompanyAddress  string `json:"company_address"`
	DeliveryAddress string `json:"delivery_address"`
	Position        string `json:"position"`
}

// UpdateUser lets an admin edit another account. Demoting the last active
// admin is rejected.
func UpdateUser(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("user", "update")

	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid user id"})
	}

	var req UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}
	if req.Role != "" && !model.ValidRole(req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid role"})
	}

	var user model.User
	if result := database.GetDB().First(&user, userID); result.Error != nil {
		log.Warn("User not found for update", zap.Uint64("user_id", userID))
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "user not found"})
	}

	// Role change away from admin must not remove the last active admin.
	if user.Role == model.RoleAdmin && user.IsActive && req.Role != "" && req.Role != model.RoleAdmin {
		others, err := model.CountOtherActiveAdmins(database.GetDB(), user.ID)
		if err != nil {
			log.Error("Failed to count active admins", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to update user"})
		}
		if model.RemovesLastActiveAdmin(&user, others) {
			log.Warn("Blocked role change of last active admin", zap.Uint("user_id", user.ID))
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "cannot change role of the last active admin"})
		}
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	if req.Role != "" {
		user.Role = req.Role
	}
	user.CompanyName = req.CompanyName
	user.CompanyAddress = req.CompanyAddress
	user.DeliveryAddress = req.DeliveryAddress
	user.Position = req.Position

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&user); result.Error != nil {
		log.Error("Failed to update user", zap.Uint("user_id", user.ID), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to update user"})
	}

	log.Info("User updated", zap.Uint("user_id", user.ID), zap.String("role", user.Role))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": user})
}

// DeleteUser removes an account. Deleting the last active admin is rejected.
func DeleteUser(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("user", "delete")

	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid user id"})
	}

	var user model.User
	if result := database.GetDB().First(&user, userID); result.Error != nil {
		log.Warn("User not found for delete", zap.Uint64("user_id", userID))
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "user not found"})
	}

	if user.Role == model.RoleAdmin && user.IsActive {
		others, err := model.CountOtherActiveAdmins(database.GetDB(), user.ID)
		if err != nil {
			log.Error("Failed to count active admins", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to delete user"})
		}
		if model.RemovesLastActiveAdmin(&user, others) {
			log.Warn("Blocked deletion of last active admin", zap.Uint("user_id", user.ID))
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "cannot delete the last active admin"})
		}
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if result := database.GetDB().Delete(&user); result.Error != nil {
		log.Error("Failed to delete user", zap.Uint("user_id", user.ID), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to delete user"})
	}

	log.Info("User deleted", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "user deleted successfully"})
}

// UpdateProfile lets the authenticated user edit their own contact details.
func UpdateProfile(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("user", "update_profile")

	userID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "authentication required"})
	}

	var req struct {
		Name            string `json:"name"`
		Phone           string `json:"phone"`
		Password        string `json:"password"`
		CompanyName     string `json:"company_name"`
		CompanyAddress  string `json:"company_address"`
		DeliveryAddress string `json:"delivery_address"`
		Position        string `json:"position"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}

	var user model.User
	if result := database.GetDB().First(&user, userID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "user not found"})
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	if req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error("Failed to hash password", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to update profile"})
		}
		user.Password = string(hashed)
	}
	user.CompanyName = req.CompanyName
	user.CompanyAddress = req.CompanyAddress
	user.DeliveryAddress = req.DeliveryAddress
	user.Position = req.Position

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&user); result.Error != nil {
		log.Error("Failed to update profile", zap.Uint("user_id", user.ID), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to update profile"})
	}

	log.Info("Profile updated", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": user})
}

// ToggleStatus flips an account's active flag. Deactivating the last active
// admin is rejected.
func ToggleStatus(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("user", "toggle_status")

	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid user id"})
	}

	var user model.User
	if result := database.GetDB().First(&user, userID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "user not found"})
	}

	if user.Role == model.RoleAdmin && user.IsActive {
		others, err := model.CountOtherActiveAdmins(database.GetDB(), user.ID)
		if err != nil {
			log.Error("Failed to count active admins", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to update status"})
		}
		if model.RemovesLastActiveAdmin(&user, others) {
			log.Warn("Blocked deactivation of last active admin", zap.Uint("user_id", user.ID))
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "cannot deactivate the last active admin"})
		}
	}

	user.IsActive = !user.IsActive

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Model(&user).Update("is_active", user.IsActive); result.Error != nil {
		log.Error("Failed to toggle status", zap.Uint("user_id", user.ID), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to update status"})
	}

	log.Info("User status toggled", zap.Uint("user_id", user.ID), zap.Bool("is_active", user.IsActive))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": user})
}

// ReportsSummary returns per-role account counts plus active/verified totals.
func ReportsSummary(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("user", "reports_summary")

	defer prometheus.TrackDBOperation("query")(time.Now())
	db := database.GetDB()

	byRole := echo.Map{}
	for _, role := range []string{model.RoleAdmin, model.RoleSupplier, model.RoleCustomer, model.RoleEmployee} {
		var count int64
		if err := db.Model(&model.User{}).Where("role = ?", role).Count(&count).Error; err != nil {
			log.Error("Failed to count users by role", zap.String("role", role), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to build summary"})
		}
		byRole[role] = count
	}

	var total, active, verified int64
	db.Model(&model.User{}).Count(&total)
	db.Model(&model.User{}).Where("is_active = ?", true).Count(&active)
	db.Model(&model.User{}).Where("is_account_verified = ?", true).Count(&verified)

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"summary": echo.Map{
			"total":    total,
			"active":   active,
			"verified": verified,
			"by_role":  byRole,
		},
	})
}

// CreateUser lets an admin provision an account directly; the account is
// created verified.
func CreateUser(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("user", "create")

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "name, email, password and role are required"})
	}
	if !model.ValidRole(req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid role"})
	}

	var existing model.User
	if result := database.GetDB().Where("email = ?", req.Email).First(&existing); result.Error == nil {
		return c.JSON(http.StatusConflict, echo.Map{"success": false, "message": "email already registered"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to create user"})
	}

	user := model.User{
		Name:              req.Name,
		Email:             req.Email,
		Phone:             req.Phone,
		Password:          string(hashed),
		Role:              req.Role,
		CompanyName:       req.CompanyName,
		CompanyAddress:    req.CompanyAddress,
		DeliveryAddress:   req.DeliveryAddress,
		Position:          req.Position,
		IsActive:          true,
		IsAccountVerified: true,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&user); result.Error != nil {
		log.Error("Failed to create user", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to create user"})
	}

	log.Info("User created by admin", zap.Uint("user_id", user.ID), zap.String("role", user.Role))
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "user": user})
}
