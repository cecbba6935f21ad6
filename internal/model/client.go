package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Client struct {
	ID            uuid.UUID                    `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Email         string                       `gorm:"type:varchar(255);not null;uniqueIndex" json:"clientEmail"`
	CompanyName   string                       `gorm:"type:varchar(100);not null;uniqueIndex" json:"clientCompanyName"`
	ContactPerson string                       `gorm:"type:varchar(100);not null" json:"clientContactPerson"`
	Phone         string                       `gorm:"type:varchar(20)" json:"clientPhone"`
	Address       string                       `gorm:"type:varchar(255)" json:"clientAddress"`
	GeoLocation   datatypes.JSONType[GeoPoint] `gorm:"type:jsonb;not null" json:"clientGeoLocation"`
	CreatedAt     time.Time                    `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time                    `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Client) TableName() string {
	return "clients"
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
