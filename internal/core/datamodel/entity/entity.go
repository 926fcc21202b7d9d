package entity

import "time"

const (
	TypeEntity = "entity"
	TypeClinic = "clinic"
)

const (
	StatusPending         = "pending"
	StatusAwaitingPayment = "awaiting_payment"
	StatusApproved        = "approved"
)

// ContractingEntity is the organization paying for the subscription.
type ContractingEntity struct {
	ID                  int64      `gorm:"primaryKey"`
	Type                string     `gorm:"column:type;not null;default:entity"`
	Name                string     `gorm:"column:name;not null"`
	RegistrationNumber  string     `gorm:"column:registration_number;not null;uniqueIndex"`
	Email               string     `gorm:"column:email"`
	Status              string     `gorm:"column:status;not null;default:pending"`
	Active              bool       `gorm:"column:active;not null;default:false"`
	PaymentConfirmed    bool       `gorm:"column:payment_confirmed;not null;default:false"`
	ApprovedAt          *time.Time `gorm:"column:approved_at"`
	ApprovedBy          *string    `gorm:"column:approved_by"`
	LoginReleasedAt     *time.Time `gorm:"column:login_released_at"`
	ResponsiblePersonID *string    `gorm:"column:responsible_person_id"`
	ResponsibleName     string     `gorm:"column:responsible_name"`
	ResponsibleEmail    string     `gorm:"column:responsible_email"`
	CreatedAt           time.Time  `gorm:"column:created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at"`
}

func (ContractingEntity) TableName() string {
	return "contracting_entities"
}
