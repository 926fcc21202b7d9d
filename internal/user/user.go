package user

import (
	"errors"
	"fmt"
	"strings"
	"time"

	entityDatamodel "github.com/frahmantamala/subscription-billing/internal/core/datamodel/entity"
	userDatamodel "github.com/frahmantamala/subscription-billing/internal/core/datamodel/user"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrCredentialExists   = errors.New("login credential already exists")
	ErrInvalidResponsible = errors.New("responsible party cannot receive a login")
)

type User struct {
	ID        int64     `json:"id"`
	Login     string    `json:"login"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	EntityID  int64     `json:"entity_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:        u.ID,
		Login:     u.Login,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		EntityID:  u.EntityID,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// Responsible is the person who receives the login of a contracting entity.
type Responsible struct {
	EntityID           int64
	EntityType         string
	PersonID           string
	Name               string
	Email              string
	RegistrationNumber string
}

// LoginID is the responsible person id, or the entity registration number
// when no person id is on file.
func (r Responsible) LoginID() string {
	if id := digitsOnly(r.PersonID); id != "" {
		return id
	}
	return digitsOnly(r.RegistrationNumber)
}

// InitialSecret is the last n digits of the registration number.
func (r Responsible) InitialSecret(n int) (string, error) {
	digits := digitsOnly(r.RegistrationNumber)
	if n <= 0 || len(digits) < n {
		return "", fmt.Errorf("%w: registration number has %d digits, need %d", ErrInvalidResponsible, len(digits), n)
	}
	return digits[len(digits)-n:], nil
}

func RoleFor(entityType string) (string, error) {
	switch entityType {
	case entityDatamodel.TypeEntity:
		return userDatamodel.RoleEntityManager, nil
	case entityDatamodel.TypeClinic:
		return userDatamodel.RoleHR, nil
	default:
		return "", fmt.Errorf("%w: unknown entity type %q", ErrInvalidResponsible, entityType)
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
