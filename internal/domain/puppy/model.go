package puppy

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Membership roles
const (
	RoleOwner     = "owner"
	RoleCaretaker = "caretaker"
)

// Membership statuses
const (
	MembershipActive  = "active"
	MembershipRemoved = "removed"
)

// Invite statuses
const (
	InvitePending  = "pending"
	InviteAccepted = "accepted"
	InviteExpired  = "expired"
	InviteRevoked  = "revoked"
)

type Puppy struct {
	ID                uuid.UUID      `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Name              string         `gorm:"size:255;not null"`
	Breed             string         `gorm:"size:255;not null"`
	AgeMonths         int            `gorm:"not null"`
	AgeWeeks          int            `gorm:"not null"`
	WeightValue       *float64       `gorm:"default:null"`
	WeightUnit        string         `gorm:"size:8;default:'lbs'"`
	LivingSituation   string         `gorm:"size:255"`
	PhotoURL          *string        `gorm:"type:text"`
	QuestionnaireData datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt         time.Time      `gorm:"not null;default:current_timestamp"`
}

// TableName specifies the table name for the Puppy model
func (Puppy) TableName() string {
	return "puppies"
}

type Membership struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	PuppyID  uuid.UUID `gorm:"type:uuid;not null;index:idx_membership,priority:1"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;index:idx_membership,priority:2"`
	Role     string    `gorm:"size:16;not null"`
	Status   string    `gorm:"size:16;not null;default:'active'"`
	JoinedAt time.Time `gorm:"not null;default:current_timestamp"`
}

// TableName specifies the table name for the Membership model
func (Membership) TableName() string {
	return "puppy_memberships"
}

type Invite struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	PuppyID     uuid.UUID  `gorm:"type:uuid;not null"`
	InvitedBy   uuid.UUID  `gorm:"type:uuid;not null"`
	InviteToken string     `gorm:"size:64;not null;uniqueIndex"`
	Status      string     `gorm:"size:16;not null;default:'pending'"`
	AcceptedBy  *uuid.UUID `gorm:"type:uuid;default:null"`
	ExpiresAt   time.Time  `gorm:"not null"`
	CreatedAt   time.Time  `gorm:"not null;default:current_timestamp"`
}

// TableName specifies the table name for the Invite model
func (Invite) TableName() string {
	return "invites"
}

// CreatePuppyInput represents the input for creating a puppy
type CreatePuppyInput struct {
	Name              string         `json:"name"`
	Breed             string         `json:"breed"`
	AgeMonths         int            `json:"age_months"`
	AgeWeeks          int            `json:"age_weeks"`
	WeightValue       *float64       `json:"weight_value"`
	WeightUnit        string         `json:"weight_unit"`
	LivingSituation   string         `json:"living_situation"`
	PhotoURL          *string        `json:"photo_url"`
	QuestionnaireData datatypes.JSON `json:"questionnaire_data"`
	OwnerID           uuid.UUID      `json:"-"`
}

// MembershipWithPuppy pairs a membership row with its puppy for list views
type MembershipWithPuppy struct {
	Membership Membership `json:"membership"`
	Puppy      Puppy      `json:"puppy"`
}

// BeforeCreate is called before creating a new puppy record
func (p *Puppy) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	return nil
}
