package models

import "gorm.io/gorm"

type User struct {
	gorm.Model
	Name     string `json:"name"`
	Email    string `json:"email" gorm:"unique"`
	Password string `json:"-"`
	Phone    string `json:"phone"`
	Role     string `json:"role"` // "driver", "agent", "dispatcher", "admin"

	// Actor-specific relations
	Driver *Driver `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"driver,omitempty"`
	Agent  *Agent  `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"agent,omitempty"`
}
