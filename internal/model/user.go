package model

import (
	"time"

	"gorm.io/gorm"
)

// User roles. Role-specific fields on User are only populated for the
// matching role.
const (
	RoleAdmin    = "admin"
	RoleSupplier = "supplier"
	RoleCustomer = "customer"
	RoleEmployee = "employee"
)

// ValidRole reports whether the given role is one of the known account roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleSupplier, RoleCustomer, RoleEmployee:
		return true
	}
	return false
}

// User represents an account in the user directory
type User struct {
	ID                uint           `json:"id" gorm:"primaryKey"`
	Name              string         `json:"name" gorm:"type:varchar(100);not null"`
	Email             string         `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Phone             string         `json:"phone" gorm:"type:varchar(20)"`
	Password          string         `json:"-" gorm:"type:varchar(100);not null"`
	Role              string         `json:"role" gorm:"type:varchar(20);index;not null"`
	CompanyName       string         `json:"company_name,omitempty" gorm:"type:varchar(100)"` // supplier
	CompanyAddress    string         `json:"company_address,omitempty" gorm:"type:text"`      // supplier
	DeliveryAddress   string         `json:"delivery_address,omitempty" gorm:"type:text"`     // customer
	Position          string         `json:"position,omitempty" gorm:"type:varchar(100)"`     // employee
	IsActive          bool           `json:"is_active" gorm:"default:true"`
	IsAccountVerified bool           `json:"is_account_verified" gorm:"default:false"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// CountOtherActiveAdmins returns the number of active admin accounts other
// than the given user. The last-active-admin invariant is checked against
// this before demoting, deactivating or deleting an admin.
func CountOtherActiveAdmins(db *gorm.DB, excludeUserID uint) (int64, error) {
	var count int64
	err := db.Model(&User{}).
		Where("role = ? AND is_active = ? AND id != ?", RoleAdmin, true, excludeUserID).
		Count(&count).Error
	return count, err
}

// RemovesLastActiveAdmin reports whether taking u out of the active-admin
// pool, by demotion, deactivation or deletion, would leave no active admin.
func RemovesLastActiveAdmin(u *User, otherActiveAdmins int64) bool {
	return u.Role == RoleAdmin && u.IsActive && otherActiveAdmins == 0
}
