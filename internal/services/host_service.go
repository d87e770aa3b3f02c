// Package services – HostService
//
// This file implements the HostService, which manages the set of
// monitored hostnames. Raw user input is normalized before persistence:
// lower-cased, URL scheme and path stripped. Uniqueness is enforced on
// the normalized form.
package services

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/expirywatch/expirybot/internal/domain"
	"github.com/expirywatch/expirybot/internal/repo"
)

// HostRepo defines the repository contract required by HostService.
type HostRepo interface {
	// AddHost inserts a normalized hostname; false when already present.
	AddHost(ctx context.Context, db *gorm.DB, hostname string) (bool, error)

	// AddHosts inserts a batch, splitting into added and rejected.
	AddHosts(ctx context.Context, db *gorm.DB, hostnames []string) (added, rejected []string, err error)

	// ListHosts returns all monitored hosts.
	ListHosts(ctx context.Context, db *gorm.DB) ([]domain.MonitoredHost, error)

	// RemoveHost deletes a hostname, or repo.ErrNotFound.
	RemoveHost(ctx context.Context, db *gorm.DB, hostname string) error

	// UpdateHostCert records probe results for a hostname.
	UpdateHostCert(ctx context.Context, db *gorm.DB, hostname, expiry, commonName string) error

	// GetHostCert fetches one host with cached cert metadata.
	GetHostCert(ctx context.Context, db *gorm.DB, hostname string) (*domain.MonitoredHost, error)
}

// gormHostRepo adapts the package-level repo functions to HostRepo.
type gormHostRepo struct{}

func (gormHostRepo) AddHost(ctx context.Context, db *gorm.DB, hostname string) (bool, error) {
	return repo.AddHost(ctx, db, hostname)
}
func (gormHostRepo) AddHosts(ctx context.Context, db *gorm.DB, hostnames []string) ([]string, []string, error) {
	return repo.AddHosts(ctx, db, hostnames)
}
func (gormHostRepo) ListHosts(ctx context.Context, db *gorm.DB) ([]domain.MonitoredHost, error) {
	return repo.ListHosts(ctx, db)
}
func (gormHostRepo) RemoveHost(ctx context.Context, db *gorm.DB, hostname string) error {
	return repo.RemoveHost(ctx, db, hostname)
}
func (gormHostRepo) UpdateHostCert(ctx context.Context, db *gorm.DB, hostname, expiry, commonName string) error {
	return repo.UpdateHostCert(ctx, db, hostname, expiry, commonName)
}
func (gormHostRepo) GetHostCert(ctx context.Context, db *gorm.DB, hostname string) (*domain.MonitoredHost, error) {
	return repo.GetHostCert(ctx, db, hostname)
}

// HostService manages the monitored-host list.
type HostService struct {
	DB   *gorm.DB
	Repo HostRepo
}

// NewHostService constructs a HostService over the gorm-backed repo.
func NewHostService(db *gorm.DB) *HostService {
	return &HostService{DB: db, Repo: gormHostRepo{}}
}

// Add normalizes and registers a single hostname. It returns the
// normalized form and whether it was newly added.
func (s *HostService) Add(ctx context.Context, raw string) (string, bool, error) {
	hostname := NormalizeHostname(raw)
	if hostname == "" {
		return "", false, ErrNoHostnames
	}
	ok, err := s.Repo.AddHost(ctx, s.DB, hostname)
	return hostname, ok, err
}

// AddBulk normalizes a newline-separated block of hostnames and
// registers them, reporting which were added and which were rejected as
// already monitored. Blank lines are skipped.
func (s *HostService) AddBulk(ctx context.Context, input string) (added, rejected []string, err error) {
	var hostnames []string
	for _, line := range strings.Split(input, "\n") {
		if h := NormalizeHostname(line); h != "" {
			hostnames = append(hostnames, h)
		}
	}
	if len(hostnames) == 0 {
		return nil, nil, ErrNoHostnames
	}
	return s.Repo.AddHosts(ctx, s.DB, hostnames)
}

// List returns all monitored hosts with their cached certificate
// metadata.
func (s *HostService) List(ctx context.Context) ([]domain.MonitoredHost, error) {
	return s.Repo.ListHosts(ctx, s.DB)
}

// UpdateCert records the metadata of a successful probe, serializing
// the expiry into the stored timestamp format. Satisfies the
// certificate cycle's host-store contract.
func (s *HostService) UpdateCert(ctx context.Context, hostname string, notAfter time.Time, commonName string) error {
	if err := s.Repo.UpdateHostCert(ctx, s.DB, hostname, notAfter.Format(domain.TimestampFormat), commonName); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrHostNotFound
		}
		return err
	}
	return nil
}

// Remove deletes a hostname from monitoring.
func (s *HostService) Remove(ctx context.Context, raw string) error {
	hostname := NormalizeHostname(raw)
	if hostname == "" {
		return ErrHostNotFound
	}
	if err := s.Repo.RemoveHost(ctx, s.DB, hostname); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrHostNotFound
		}
		return err
	}
	return nil
}

// schemeRE matches an explicit URL scheme prefix.
var schemeRE = regexp.MustCompile(`^https?://`)

// NormalizeHostname lower-cases a user-supplied site reference and
// strips any URL scheme, path, port, and surrounding whitespace,
// leaving the bare hostname. Returns "" for unusable input.
func NormalizeHostname(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !schemeRE.MatchString(raw) {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	hostname := u.Hostname()
	if hostname == "" {
		hostname = strings.TrimSuffix(u.Path, "/")
	}
	return strings.ToLower(hostname)
}
