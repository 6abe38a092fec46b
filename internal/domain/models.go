// Package domain defines the persistence models for leads. These types are
// mapped with GORM and form the core data layer of the intake service.
package domain

import "time"

// LeadState is the lifecycle marker of a Lead.
type LeadState string

const (
	// LeadStatePending is the initial state of every lead.
	LeadStatePending LeadState = "PENDING"
	// LeadStateReachedOut marks a lead the practice has contacted.
	LeadStateReachedOut LeadState = "REACHED_OUT"
)

// LeadStates lists every representable state, in declaration order.
var LeadStates = []LeadState{LeadStatePending, LeadStateReachedOut}

// Valid reports whether s is one of the defined states (case-sensitive).
func (s LeadState) Valid() bool {
	switch s {
	case LeadStatePending, LeadStateReachedOut:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (s LeadState) String() string { return string(s) }

// Lead represents a prospective client's intake submission.
//
// Fields:
//   - ID: autoincrement primary key, assigned by the store.
//   - FirstName / LastName: non-empty display names.
//   - Email: unique across all leads (enforced by ux_leads_email).
//   - Resume: free text, either resume content or a link to it.
//   - State: PENDING or REACHED_OUT (enforced by DB check constraint).
//   - CreatedAt: stamped once on insert.
//   - UpdatedAt: stamped on insert and refreshed on every state change.
//
// Leads are never deleted, so there is no soft-delete column.
type Lead struct {
	ID        uint      `json:"id"         gorm:"primaryKey;autoIncrement"`
	FirstName string    `json:"first_name" gorm:"type:varchar(255);not null"`
	LastName  string    `json:"last_name"  gorm:"type:varchar(255);not null"`
	Email     string    `json:"email"      gorm:"type:varchar(320);not null;uniqueIndex:ux_leads_email"`
	Resume    string    `json:"resume"     gorm:"type:text;not null"`
	State     LeadState `json:"state"      gorm:"type:varchar(16);not null;default:'PENDING';check:chk_leads_state,state IN ('PENDING','REACHED_OUT')"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;autoCreateTime:false"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;autoUpdateTime:false"`
}

// TableName returns the database table name for Lead.
func (Lead) TableName() string { return "leads" }
