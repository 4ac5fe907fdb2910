package types

import (
	"time"

	"github.com/google/uuid"
)

// Access levels gate verbs: read requires at least AccessLevelViewer,
// create/update/delete require at least AccessLevelCurator.
const (
	AccessLevelNone    = 0
	AccessLevelViewer  = 1
	AccessLevelCurator = 2
	AccessLevelAdmin   = 3
)

type User struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Username    string    `gorm:"uniqueIndex;not null;column:username" json:"username"`
	Email       string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password    string    `gorm:"not null;column:password" json:"-" api:"exclude"`
	FirstName   string    `gorm:"column:first_name" json:"first_name"`
	LastName    string    `gorm:"column:last_name" json:"last_name"`
	AccessLevel int       `gorm:"column:access_level;not null;default:1" json:"access_level"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at" api:"readonly"`
	UpdatedAt   time.Time `gorm:"not null;default:now()" json:"updated_at" api:"readonly"`
}

func (User) TableName() string { return "platform_user" }

func (u *User) CanRead() bool  { return u != nil && u.AccessLevel >= AccessLevelViewer }
func (u *User) CanWrite() bool { return u != nil && u.AccessLevel >= AccessLevelCurator }

type UserToken struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	TokenHash string     `gorm:"column:token_hash;not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null;index" json:"expires_at"`
	RevokedAt *time.Time `gorm:"column:revoked_at" json:"revoked_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (UserToken) TableName() string { return "user_token" }
