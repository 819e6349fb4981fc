package models

import "time"

type ExeatRequest struct {
	ID          uint
	StudentID   uint
	Reason      string
	IsMedical   bool
	ContactMode string
	ParentEmail string
	ParentPhone string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ExeatApproval struct {
	ID        uint
	RequestID uint
	StaffID   uint
	Stage     string
	Status    string
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ParentConsent struct {
	ID               uint
	RequestID        uint
	ConsentStatus    string
	ConsentMethod    string
	ConsentToken     string
	ConsentMessage   string
	RequestedByStaff *uint
	ConsentedAt      *time.Time
	ExpiresAt        time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
