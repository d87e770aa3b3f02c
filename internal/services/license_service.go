// Package services – LicenseService
//
// This file implements the LicenseService, which validates scheduling
// requests and persists license records. Validation happens before any
// state is touched: date format, past-date rejection, duplicate
// (company, product) detection, and due-date planning. The planned
// dates are returned purely as user confirmation; the scheduler
// recomputes due-ness from the raw expiry date on every tick.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/expirywatch/expirybot/internal/domain"
	"github.com/expirywatch/expirybot/internal/expiry"
	"github.com/expirywatch/expirybot/internal/repo"
)

// LicenseRepo defines the repository contract required by LicenseService.
type LicenseRepo interface {
	// CreateLicense inserts a record, or repo.ErrDuplicate on a
	// (company, product) clash.
	CreateLicense(ctx context.Context, db *gorm.DB, ownerID int64, company, product, expiryDate, quantity string) (*domain.License, error)

	// ListLicenses returns all license records.
	ListLicenses(ctx context.Context, db *gorm.DB) ([]domain.License, error)

	// DeleteLicense removes a record by id, or repo.ErrNotFound.
	DeleteLicense(ctx context.Context, db *gorm.DB, id uint) error
}

// gormLicenseRepo adapts the package-level repo functions to LicenseRepo.
type gormLicenseRepo struct{}

func (gormLicenseRepo) CreateLicense(ctx context.Context, db *gorm.DB, ownerID int64, company, product, expiryDate, quantity string) (*domain.License, error) {
	return repo.CreateLicense(ctx, db, ownerID, company, product, expiryDate, quantity)
}
func (gormLicenseRepo) ListLicenses(ctx context.Context, db *gorm.DB) ([]domain.License, error) {
	return repo.ListLicenses(ctx, db)
}
func (gormLicenseRepo) DeleteLicense(ctx context.Context, db *gorm.DB, id uint) error {
	return repo.DeleteLicense(ctx, db, id)
}

// LicenseService validates and persists license-expiry notifications.
type LicenseService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the license repository used by this service.
	Repo LicenseRepo
	// Loc is the bot's wall-clock zone, used to decide "today".
	Loc *time.Location
	// Now returns the current instant; overridable in tests.
	Now func() time.Time
}

// NewLicenseService constructs a LicenseService over the gorm-backed repo.
func NewLicenseService(db *gorm.DB, loc *time.Location) *LicenseService {
	return &LicenseService{
		DB:   db,
		Repo: gormLicenseRepo{},
		Loc:  loc,
		Now:  time.Now,
	}
}

func (s *LicenseService) now() time.Time { return s.Now().In(s.Loc) }

// Schedule validates a scheduling request and persists the record. The
// expiryDate is user input in DD.MM.YYYY form. On success it returns the
// created record and the planned notification dates for confirmation.
func (s *LicenseService) Schedule(ctx context.Context, ownerID int64, company, product, expiryDate, quantity string) (*domain.License, []time.Time, error) {
	company = strings.TrimSpace(company)
	product = strings.TrimSpace(product)

	exp, err := time.ParseInLocation(domain.DisplayDateFormat, strings.TrimSpace(expiryDate), time.UTC)
	if err != nil {
		return nil, nil, ErrInvalidDate
	}

	now := s.now()
	if exp.Before(expiry.DateOf(now)) {
		return nil, nil, ErrPastExpiry
	}

	planned, err := expiry.Plan(exp, now)
	if err != nil {
		if errors.Is(err, expiry.ErrNoActionableDates) {
			return nil, nil, ErrNoActionableDates
		}
		return nil, nil, err
	}

	l, err := s.Repo.CreateLicense(ctx, s.DB, ownerID, company, product, exp.Format(domain.DateFormat), strings.TrimSpace(quantity))
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, nil, ErrDuplicateLicense
		}
		return nil, nil, err
	}
	return l, planned, nil
}

// List returns all scheduled license notifications.
func (s *LicenseService) List(ctx context.Context) ([]domain.License, error) {
	return s.Repo.ListLicenses(ctx, s.DB)
}

// Delete removes a license notification by id.
func (s *LicenseService) Delete(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteLicense(ctx, s.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrLicenseNotFound
		}
		return err
	}
	return nil
}
