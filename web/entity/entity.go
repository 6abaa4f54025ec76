// Package entity defines the request and response bodies of the HTTP API.
package entity

import "github.com/steams-social/steams-api/database/model"

// Msg is the body of simple acknowledgements.
type Msg struct {
	Success bool `json:"success"`
}

// ErrorMsg is the body of every non-2xx JSON response.
type ErrorMsg struct {
	Error string `json:"error"`
}

type SessionStatus struct {
	LoginStatus bool `json:"loginStatus"`
}

// LetMeInResp reports the stored user and whether this call created it.
type LetMeInResp struct {
	Success bool        `json:"success"`
	Created bool        `json:"created"`
	User    *model.User `json:"user"`
}

// SelfResp merges the session identity with the stored profile.
type SelfResp struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Verified      bool   `json:"verified"`
	Picture       string `json:"picture"`
	IsAdmin       bool   `json:"isAdmin"`
}

type ProfileUpdateReq struct {
	Name string `json:"name" binding:"required"`
}

type PromoteReq struct {
	Email string `json:"email" binding:"required"`
}

type ComplaintReq struct {
	Issue string `json:"issue" binding:"required"`
}

type ComplaintResp struct {
	Success   bool             `json:"success"`
	Complaint *model.Complaint `json:"complaint"`
}

// ComplaintStatusReq is one admin decision on a complaint.
type ComplaintStatusReq struct {
	ComplaintUID int                   `json:"complaintUID" binding:"required"`
	Status       model.ComplaintStatus `json:"status" binding:"required"`
	Response     string                `json:"response"`
}

// MapQuery holds the raw coordinates; they are validated by the handler so
// that a missing parameter never reaches the map service.
type MapQuery struct {
	Latitude  string `form:"latitude"`
	Longitude string `form:"longitude"`
}
