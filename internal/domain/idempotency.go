package domain

import "time"

// Idempotency records the lead produced by a previously processed intake
// request, keyed by (scope, key). Fingerprint identifies the normalized
// payload that created it: a retry is answered with the stored lead only
// when it carries the same key and the same payload.
type Idempotency struct {
	ID          string    `gorm:"type:varchar(36);primaryKey"`
	Scope       string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_idem_scope_key,priority:1"`
	Key         string    `gorm:"type:varchar(200);not null;uniqueIndex:ux_idem_scope_key,priority:2"`
	Fingerprint string    `gorm:"type:varchar(64);not null"`
	LeadID      uint      `gorm:"not null"`
	Status      int       `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
	ExpiresAt   time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
