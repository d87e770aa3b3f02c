package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/expirywatch/expirybot/internal/domain"
	"github.com/expirywatch/expirybot/internal/repo"
)

// ----- Fake repo -----

type fakeLicenseRepo struct {
	createOwnerID int64
	createCompany string
	createProduct string
	createExpiry  string
	createQty     string
	createErr     error

	listItems []domain.License
	listErr   error

	deleteID  uint
	deleteErr error
}

func (r *fakeLicenseRepo) CreateLicense(ctx context.Context, db *gorm.DB, ownerID int64, company, product, expiryDate, quantity string) (*domain.License, error) {
	r.createOwnerID = ownerID
	r.createCompany = company
	r.createProduct = product
	r.createExpiry = expiryDate
	r.createQty = quantity
	if r.createErr != nil {
		return nil, r.createErr
	}
	return &domain.License{ID: 1, OwnerID: ownerID, Company: company, Product: product, ExpiryDate: expiryDate, Quantity: quantity}, nil
}

func (r *fakeLicenseRepo) ListLicenses(ctx context.Context, db *gorm.DB) ([]domain.License, error) {
	return r.listItems, r.listErr
}

func (r *fakeLicenseRepo) DeleteLicense(ctx context.Context, db *gorm.DB, id uint) error {
	r.deleteID = id
	return r.deleteErr
}

func testLicenseService(r LicenseRepo, now time.Time) *LicenseService {
	loc := time.FixedZone("UTC+5", 5*3600)
	return &LicenseService{
		DB:   nil, // fakes ignore the handle
		Repo: r,
		Loc:  loc,
		Now:  func() time.Time { return now.In(loc) },
	}
}

// ----- Tests -----

func TestSchedule_Success(t *testing.T) {
	r := &fakeLicenseRepo{}
	loc := time.FixedZone("UTC+5", 5*3600)
	s := testLicenseService(r, time.Date(2025, 3, 1, 9, 30, 0, 0, loc))

	l, planned, err := s.Schedule(context.Background(), 42, " Acme ", " Widget Suite ", "10.03.2025", " 25 ")
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if l.Company != "Acme" || l.Product != "Widget Suite" {
		t.Fatalf("trim not applied: %+v", l)
	}
	if r.createExpiry != "2025-03-10" {
		t.Fatalf("stored expiry = %q; want 2025-03-10", r.createExpiry)
	}
	if r.createQty != "25" {
		t.Fatalf("stored quantity = %q; want 25", r.createQty)
	}
	if len(planned) != 2 {
		t.Fatalf("planned = %v; want two dates", planned)
	}
	if planned[0].Format("2006-01-02") != "2025-03-03" || planned[1].Format("2006-01-02") != "2025-03-10" {
		t.Fatalf("planned = %v; want [2025-03-03 2025-03-10]", planned)
	}
}

func TestSchedule_InvalidDateFormat(t *testing.T) {
	r := &fakeLicenseRepo{}
	s := testLicenseService(r, time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC))

	for _, bad := range []string{"2025-03-10", "10/03/2025", "tomorrow", ""} {
		_, _, err := s.Schedule(context.Background(), 1, "Acme", "P", bad, "")
		if !errors.Is(err, ErrInvalidDate) {
			t.Errorf("Schedule(%q) err = %v; want ErrInvalidDate", bad, err)
		}
	}
	if r.createCompany != "" {
		t.Fatal("repo must not be called on validation failure")
	}
}

func TestSchedule_PastDateRejected(t *testing.T) {
	r := &fakeLicenseRepo{}
	s := testLicenseService(r, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))

	_, _, err := s.Schedule(context.Background(), 1, "Acme", "P", "09.03.2025", "")
	if !errors.Is(err, ErrPastExpiry) {
		t.Fatalf("err = %v; want ErrPastExpiry", err)
	}
}

func TestSchedule_NoActionableDates(t *testing.T) {
	r := &fakeLicenseRepo{}
	// Expiry is today, but the send window has already opened.
	loc := time.FixedZone("UTC+5", 5*3600)
	s := testLicenseService(r, time.Date(2025, 3, 10, 10, 30, 0, 0, loc))

	_, _, err := s.Schedule(context.Background(), 1, "Acme", "P", "10.03.2025", "")
	if !errors.Is(err, ErrNoActionableDates) {
		t.Fatalf("err = %v; want ErrNoActionableDates", err)
	}
	if r.createCompany != "" {
		t.Fatal("repo must not be called when nothing can be scheduled")
	}
}

func TestSchedule_DuplicateMapped(t *testing.T) {
	r := &fakeLicenseRepo{createErr: repo.ErrDuplicate}
	s := testLicenseService(r, time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))

	_, _, err := s.Schedule(context.Background(), 1, "Acme", "P", "10.03.2025", "")
	if !errors.Is(err, ErrDuplicateLicense) {
		t.Fatalf("err = %v; want ErrDuplicateLicense", err)
	}
}

func TestDelete_MapsNotFound(t *testing.T) {
	r := &fakeLicenseRepo{deleteErr: repo.ErrNotFound}
	s := testLicenseService(r, time.Now())

	if err := s.Delete(context.Background(), 7); !errors.Is(err, ErrLicenseNotFound) {
		t.Fatalf("err = %v; want ErrLicenseNotFound", err)
	}
	if r.deleteID != 7 {
		t.Fatalf("deleteID = %d; want 7", r.deleteID)
	}
}

func TestList_PassesThrough(t *testing.T) {
	r := &fakeLicenseRepo{listItems: []domain.License{{ID: 1}, {ID: 2}}}
	s := testLicenseService(r, time.Now())

	got, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d; want 2", len(got))
	}
}
