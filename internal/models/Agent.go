package models

import (
	"gorm.io/gorm"
)

// Agent is a sales agent who may be attached to an allocation as the
// customer-facing contact.
type Agent struct {
	gorm.Model
	UserID uint   `json:"user_id" gorm:"unique"`
	User   User   `gorm:"foreignKey:UserID" json:"-"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
}
