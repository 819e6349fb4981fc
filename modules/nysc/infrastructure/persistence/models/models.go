package models

import "time"

type NyscPayment struct {
	ID             uint
	StudentID      uint
	RegistrationID *uint
	SessionID      string
	AmountKobo     int64
	Currency       string
	Reference      string
	Status         string
	GatewayRaw     []byte
	PaymentDate    time.Time
	VerifiedAt     *time.Time
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type NyscRegistration struct {
	ID          uint
	StudentID   uint
	SessionID   string
	IsPaid      bool
	IsSubmitted bool
	SubmittedAt *time.Time
	Snapshot    []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type NyscTempSubmission struct {
	ID        uint
	StudentID uint
	SessionID string
	Payload   []byte
	CreatedAt time.Time
}
