// Package model defines the gorm models of the authorization store.
package model

import "time"

type ComplaintStatus string

const (
	StatusNotViewed  ComplaintStatus = "NOT_VIEWED"
	StatusViewed     ComplaintStatus = "VIEWED"
	StatusInProgress ComplaintStatus = "IN_PROGRESS"
	StatusResolved   ComplaintStatus = "RESOLVED"
	StatusRejected   ComplaintStatus = "REJECTED"
)

// Valid reports whether s is one of the known complaint statuses.
func (s ComplaintStatus) Valid() bool {
	switch s {
	case StatusNotViewed, StatusViewed, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// User is keyed by the email the identity provider reports for the session.
type User struct {
	Id        int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	Name      string    `json:"name"`
	Verified  bool      `json:"verified"`
	Picture   string    `json:"picture"`
	IsAdmin   bool      `json:"isAdmin" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Admin marks a promoted user. Kept next to User.IsAdmin for older readers of the table.
type Admin struct {
	Id        int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `json:"createdAt"`
}

type Complaint struct {
	ComplaintUID int       `json:"complaintUID" gorm:"column:complaint_uid;primaryKey;autoIncrement"`
	OwnerEmail   string    `json:"email" gorm:"column:email;index;not null"`
	Issue        string    `json:"issue" gorm:"type:text;not null"`
	CreatedAt    time.Time `json:"createdAt"`

	// Status is derived from History and never stored.
	Status  ComplaintStatus  `json:"status" gorm:"-"`
	User    *User            `json:"user,omitempty" gorm:"foreignKey:OwnerEmail;references:Email;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	History []ComplaintAdmin `json:"history" gorm:"foreignKey:ComplaintUID;references:ComplaintUID"`
}

// ComplaintAdmin is one admin action on a complaint. Rows are only ever appended.
type ComplaintAdmin struct {
	Id           int             `json:"id" gorm:"primaryKey;autoIncrement"`
	ComplaintUID int             `json:"complaintUID" gorm:"column:complaint_uid;index;not null"`
	AdminId      int             `json:"adminId" gorm:"index;not null"`
	Status       ComplaintStatus `json:"status" gorm:"not null"`
	Response     string          `json:"response" gorm:"type:text"`
	CreatedAt    time.Time       `json:"createdAt"`

	Admin *User `json:"-" gorm:"foreignKey:AdminId;references:Id"`
}

// CurrentStatus returns the status of the newest history entry, or
// NOT_VIEWED when no admin has acted on the complaint yet. History must be
// ordered oldest first.
func (c *Complaint) CurrentStatus() ComplaintStatus {
	if n := len(c.History); n > 0 {
		return c.History[n-1].Status
	}
	return StatusNotViewed
}
