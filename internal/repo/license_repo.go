// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the License
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - CreateLicense returns ErrDuplicate when an active record with the
//     same (company, product) pair already exists.
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On other DB errors, the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/expirywatch/expirybot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate is returned when an insert would violate a uniqueness
// invariant, such as the (company, product) pair on licenses.
var ErrDuplicate = errors.New("record already exists")

// CreateLicense inserts a new license record owned by ownerID. The
// expiryDate must already be in domain.DateFormat; validation happens in
// the service layer. Returns ErrDuplicate when a record with the same
// (company, product) pair exists.
func CreateLicense(ctx context.Context, db *gorm.DB, ownerID int64, company, product, expiryDate, quantity string) (*domain.License, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.License{}).
		Where("company = ? AND product = ?", company, product).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDuplicate
	}

	l := &domain.License{
		OwnerID:          ownerID,
		Company:          company,
		Product:          product,
		ExpiryDate:       expiryDate,
		Quantity:         quantity,
		NotificationType: domain.NotificationTypeLicense,
	}
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		return nil, err
	}
	return l, nil
}

// ListLicenses returns all license records ordered by id. It returns an
// empty slice when none exist.
func ListLicenses(ctx context.Context, db *gorm.DB) ([]domain.License, error) {
	var out []domain.License
	err := db.WithContext(ctx).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// DeleteLicense removes a license record by id. If no rows are affected
// it returns ErrNotFound.
func DeleteLicense(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&domain.License{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
