// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// MonitoredHost model.
//
// Hostnames handed to these functions must already be normalized
// (lower-case, scheme and path stripped); normalization is the service
// layer's job. Lookups still lower-case their argument so that a raw
// hostname coming straight from a chat command cannot silently miss.
package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/expirywatch/expirybot/internal/domain"
)

// AddHost inserts a monitored host. It reports false when the hostname
// is already present (case-insensitively); the caller decides whether
// that is worth telling the user about.
func AddHost(ctx context.Context, db *gorm.DB, hostname string) (bool, error) {
	hostname = strings.ToLower(hostname)

	var count int64
	err := db.WithContext(ctx).
		Model(&domain.MonitoredHost{}).
		Where("hostname = ?", hostname).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	if err := db.WithContext(ctx).Create(&domain.MonitoredHost{Hostname: hostname}).Error; err != nil {
		return false, err
	}
	return true, nil
}

// AddHosts inserts a batch of hostnames, returning the subset that was
// added and the subset that was rejected as already present. A DB error
// aborts the batch.
func AddHosts(ctx context.Context, db *gorm.DB, hostnames []string) (added, rejected []string, err error) {
	for _, h := range hostnames {
		ok, err := AddHost(ctx, db, h)
		if err != nil {
			return added, rejected, err
		}
		if ok {
			added = append(added, h)
		} else {
			rejected = append(rejected, h)
		}
	}
	return added, rejected, nil
}

// ListHosts returns all monitored hosts ordered by hostname.
func ListHosts(ctx context.Context, db *gorm.DB) ([]domain.MonitoredHost, error) {
	var out []domain.MonitoredHost
	err := db.WithContext(ctx).
		Order("hostname asc").
		Find(&out).Error
	return out, err
}

// RemoveHost deletes a monitored host by hostname. Returns ErrNotFound
// when the hostname is not being monitored.
func RemoveHost(ctx context.Context, db *gorm.DB, hostname string) error {
	res := db.WithContext(ctx).
		Where("hostname = ?", strings.ToLower(hostname)).
		Delete(&domain.MonitoredHost{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateHostCert records the metadata of a successful probe. expiry must
// be in domain.TimestampFormat.
func UpdateHostCert(ctx context.Context, db *gorm.DB, hostname, expiry, commonName string) error {
	res := db.WithContext(ctx).
		Model(&domain.MonitoredHost{}).
		Where("hostname = ?", strings.ToLower(hostname)).
		Updates(map[string]any{
			"cert_expiry": expiry,
			"common_name": commonName,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetHostCert fetches a monitored host with its cached certificate
// metadata, or ErrNotFound.
func GetHostCert(ctx context.Context, db *gorm.DB, hostname string) (*domain.MonitoredHost, error) {
	var h domain.MonitoredHost
	err := db.WithContext(ctx).
		Where("hostname = ?", strings.ToLower(hostname)).
		First(&h).Error
	if err != nil {
		return nil, err
	}
	return &h, nil
}
