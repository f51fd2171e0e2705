package model

import "time"

type ContactStatus string

const (
	ContactStatusPending   ContactStatus = "pending"
	ContactStatusRead      ContactStatus = "read"
	ContactStatusResponded ContactStatus = "responded"
)

func (s ContactStatus) Valid() bool {
	switch s {
	case ContactStatusPending, ContactStatusRead, ContactStatusResponded:
		return true
	}
	return false
}

type Contact struct {
	ID        uint          `gorm:"primarykey" json:"id"`
	Name      string        `gorm:"type:varchar(50);not null" json:"name"`
	Email     string        `gorm:"type:varchar(255);not null;index" json:"email"`
	Subject   string        `gorm:"type:varchar(100);not null" json:"subject"`
	Message   string        `gorm:"type:text;not null" json:"message"`
	Status    ContactStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	Response  string        `gorm:"type:text" json:"response,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func (Contact) TableName() string {
	return "contacts"
}
