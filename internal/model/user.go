package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LoginStatus string

const (
	LoginStatusSuccess LoginStatus = "success"
	LoginStatusFailed  LoginStatus = "failed"
)

type User struct {
	ID                    uuid.UUID      `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Email                 string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"userEmail"`
	Name                  string         `gorm:"type:varchar(100);not null" json:"userName"`
	LastName              string         `gorm:"type:varchar(100);not null" json:"userLastName"`
	FullName              string         `gorm:"type:varchar(201);not null;uniqueIndex" json:"userFullName"`
	Phone                 string         `gorm:"type:varchar(20)" json:"userPhone"`
	PasswordHash          string         `gorm:"type:text" json:"-"`
	IsActive              bool           `gorm:"not null;default:false" json:"userIsActive"`
	Role                  Role           `gorm:"type:user_role;not null" json:"userRole"`
	DeletionCause         *string        `gorm:"type:text" json:"userDeletionCause"`
	FailedAttempts        int            `gorm:"not null;default:0" json:"userFailedAttempts"`
	ConfirmationToken     *string        `gorm:"type:text" json:"-"`
	ConfirmationExpiresAt *time.Time     `json:"userConfirmationExpiresAt,omitempty"`
	LoginToken            *string        `gorm:"type:text" json:"-"`
	LoginAttempts         []LoginAttempt `gorm:"foreignKey:UserID" json:"userLoginAttempts,omitempty"`
	CreatedAt             time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) Principal() Principal {
	return Principal{
		UserID:   u.ID,
		Role:     u.Role,
		Email:    u.Email,
		FullName: u.FullName,
	}
}

type LoginAttempt struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	UserID    uuid.UUID   `gorm:"type:uuid;not null;index" json:"userId"`
	Timestamp time.Time   `gorm:"not null" json:"timestamp"`
	Status    LoginStatus `gorm:"type:varchar(16);not null" json:"status"`
	Cause     *string     `gorm:"type:text" json:"cause,omitempty"`
	Token     *string     `gorm:"type:text" json:"-"`
}

func (LoginAttempt) TableName() string {
	return "user_login_attempts"
}

func (a *LoginAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
