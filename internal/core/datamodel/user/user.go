package user

import "time"

const (
	RoleEntityManager = "entity_manager"
	RoleHR            = "hr"
)

// User is a login account. Login holds the responsible person id and is unique.
type User struct {
	ID           int64     `gorm:"primaryKey"`
	Login        string    `gorm:"column:login;uniqueIndex;not null"`
	Name         string    `gorm:"column:name;not null"`
	Email        string    `gorm:"column:email"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	Role         string    `gorm:"column:role;not null"`
	EntityID     int64     `gorm:"column:entity_id;not null;index"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}
