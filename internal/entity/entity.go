package entity

import (
	"errors"

	entityDatamodel "github.com/frahmantamala/subscription-billing/internal/core/datamodel/entity"
	"github.com/frahmantamala/subscription-billing/internal/user"
)

var ErrNotFound = errors.New("contracting entity not found")

type Entity struct {
	ID                  int64  `json:"id"`
	Type                string `json:"type"`
	Name                string `json:"name"`
	RegistrationNumber  string `json:"registration_number"`
	Status              string `json:"status"`
	Active              bool   `json:"active"`
	PaymentConfirmed    bool   `json:"payment_confirmed"`
	ResponsiblePersonID string `json:"responsible_person_id,omitempty"`
	ResponsibleName     string `json:"responsible_name"`
	ResponsibleEmail    string `json:"responsible_email"`
}

func FromDataModel(e *entityDatamodel.ContractingEntity) *Entity {
	out := &Entity{
		ID:                 e.ID,
		Type:               e.Type,
		Name:               e.Name,
		RegistrationNumber: e.RegistrationNumber,
		Status:             e.Status,
		Active:             e.Active,
		PaymentConfirmed:   e.PaymentConfirmed,
		ResponsibleName:    e.ResponsibleName,
		ResponsibleEmail:   e.ResponsibleEmail,
	}
	if e.ResponsiblePersonID != nil {
		out.ResponsiblePersonID = *e.ResponsiblePersonID
	}
	return out
}

func (e *Entity) Responsible() user.Responsible {
	return user.Responsible{
		EntityID:           e.ID,
		EntityType:         e.Type,
		PersonID:           e.ResponsiblePersonID,
		Name:               e.ResponsibleName,
		Email:              e.ResponsibleEmail,
		RegistrationNumber: e.RegistrationNumber,
	}
}

// ActivationResult reports what an activation call achieved.
// LoginAvailable is true when a login exists after the call, created now or before.
type ActivationResult struct {
	EntityActivated bool
	LoginCreated    bool
	LoginAvailable  bool
	LoginErr        error
}
