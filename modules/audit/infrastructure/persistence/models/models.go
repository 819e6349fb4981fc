package models

import "time"

type AuditLog struct {
	ID         uint
	StaffID    *uint
	StudentID  uint
	Action     string
	TargetType string
	TargetID   uint
	Details    string
	CreatedAt  time.Time
}
