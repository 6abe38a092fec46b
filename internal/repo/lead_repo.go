// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Lead model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only
// persistence and query composition.
//
// Error semantics:
//   - When a lead is not found, functions return ErrNotFound
//     (an alias of gorm.ErrRecordNotFound).
//   - An insert that collides with ux_leads_email returns ErrDuplicate. The
//     check is the database constraint itself, never a prior lookup, so two
//     concurrent inserts of the same email cannot both succeed.
//   - On other DB errors the raw gorm error is propagated.
//
// Functions:
//
//   - CreateLead(ctx, db, lead) -> error
//   - ListLeads(ctx, db) -> []domain.Lead, error
//   - CountLeads(ctx, db) -> int64, error
//   - GetLead(ctx, db, id) -> *domain.Lead, error
//   - UpdateLeadState(ctx, db, id, state, updatedAt) -> error
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-leads-backend/internal/domain"
)

// CreateLead inserts lead as given. The caller sets State and both
// timestamps; the database assigns ID, which is written back into lead.
func CreateLead(ctx context.Context, db *gorm.DB, lead *domain.Lead) error {
	if err := db.WithContext(ctx).Create(lead).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// ListLeads returns every lead in insertion order (id ascending). It returns
// an empty, non-nil slice when the table is empty.
func ListLeads(ctx context.Context, db *gorm.DB) ([]domain.Lead, error) {
	out := []domain.Lead{}
	err := db.WithContext(ctx).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// CountLeads returns the total number of leads.
func CountLeads(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Lead{}).Count(&total).Error
	return total, err
}

// GetLead fetches a single lead by ID, or ErrNotFound.
func GetLead(ctx context.Context, db *gorm.DB, id uint) (*domain.Lead, error) {
	var l domain.Lead
	if err := db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// UpdateLeadState replaces the state and updated_at columns of a lead. If no
// row matches id it returns ErrNotFound. created_at is never written here.
func UpdateLeadState(ctx context.Context, db *gorm.DB, id uint, state domain.LeadState, updatedAt time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Lead{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"state":      state,
			"updated_at": updatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
