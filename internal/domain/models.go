// Package domain defines the persistence models for license records,
// monitored hosts, and the access-control tables. These types are mapped
// with GORM and form the core data layer of the bot.
package domain

import (
	"time"
)

// Persisted text formats. Calendar dates and certificate timestamps are
// stored as text columns so the database stays portable and trivially
// inspectable with the sqlite3 shell.
const (
	// DateFormat is the stored form of calendar dates (YYYY-MM-DD).
	DateFormat = "2006-01-02"
	// TimestampFormat is the stored form of certificate expiry
	// timestamps (YYYY-MM-DD HH:MM:SS).
	TimestampFormat = "2006-01-02 15:04:05"
	// DisplayDateFormat is the user-facing date form (DD.MM.YYYY).
	DisplayDateFormat = "02.01.2006"
)

// NotificationTypeLicense is the only notification type currently
// produced by the scheduling flow.
const NotificationTypeLicense = "license"

// License represents a scheduled license-expiry notification. The
// (company, product) pair is unique among active records; duplicate
// scheduling requests are rejected before persistence.
//
// Fields:
//   - ID: store-assigned integer key, surfaced to users in /delete_<id>.
//   - OwnerID: chat identifier of the recipient to notify.
//   - ExpiryDate: calendar date in DateFormat; due-ness is recomputed
//     from this raw value on every scheduler tick.
//   - Quantity: optional free-text seat/unit count shown in reminders.
type License struct {
	ID               uint      `json:"id"                gorm:"primaryKey"`
	OwnerID          int64     `json:"owner_id"          gorm:"not null;index"`
	Company          string    `json:"company"           gorm:"type:varchar(255);not null;uniqueIndex:ux_license_company_product,priority:1"`
	Product          string    `json:"product"           gorm:"type:varchar(255);not null;uniqueIndex:ux_license_company_product,priority:2"`
	ExpiryDate       string    `json:"expiry_date"       gorm:"type:char(10);not null"`
	Quantity         string    `json:"quantity,omitempty" gorm:"type:varchar(64)"`
	NotificationType string    `json:"notification_type" gorm:"type:varchar(32);not null;default:'license'"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName returns the database table name for License.
func (License) TableName() string { return "licenses" }

// Expiry parses the stored expiry date. The returned time is midnight
// UTC of the calendar day; day arithmetic never depends on a zone.
func (l License) Expiry() (time.Time, error) {
	return time.ParseInLocation(DateFormat, l.ExpiryDate, time.UTC)
}

// MonitoredHost is a hostname whose TLS certificate is swept
// periodically. Hostnames are stored normalized (lower-case, scheme and
// path stripped); uniqueness is enforced on the normalized form.
//
// CertExpiry and CommonName hold the metadata of the last successful
// probe and are empty until the host has been probed once.
type MonitoredHost struct {
	ID         uint      `json:"id"          gorm:"primaryKey"`
	Hostname   string    `json:"hostname"    gorm:"type:varchar(255);not null;uniqueIndex"`
	CertExpiry string    `json:"cert_expiry,omitempty" gorm:"type:char(19)"`
	CommonName string    `json:"common_name,omitempty" gorm:"type:varchar(255)"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for MonitoredHost.
func (MonitoredHost) TableName() string { return "monitored_hosts" }

// CertExpiryTime parses the stored certificate expiry timestamp in the
// given location. ok is false when the host has never been probed.
func (h MonitoredHost) CertExpiryTime(loc *time.Location) (t time.Time, ok bool) {
	if h.CertExpiry == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(TimestampFormat, h.CertExpiry, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// AllowedUser is a member of the bot's allow-list. Users enter it only
// through operator approval of an AccessRequest.
type AllowedUser struct {
	UserID    int64     `json:"user_id"    gorm:"primaryKey"`
	Username  string    `json:"username"   gorm:"type:varchar(64)"`
	FirstName string    `json:"first_name" gorm:"type:varchar(64)"`
	LastName  string    `json:"last_name"  gorm:"type:varchar(64)"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for AllowedUser.
func (AllowedUser) TableName() string { return "allowed_users" }

// AccessRequest is a pending request to use the bot. Approval moves the
// row into allowed_users; rejection deletes it.
type AccessRequest struct {
	UserID    int64     `json:"user_id"    gorm:"primaryKey"`
	Username  string    `json:"username"   gorm:"type:varchar(64)"`
	FirstName string    `json:"first_name" gorm:"type:varchar(64)"`
	LastName  string    `json:"last_name"  gorm:"type:varchar(64)"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for AccessRequest.
func (AccessRequest) TableName() string { return "access_requests" }

// AllowedChat is a chat eligible to receive broadcast certificate
// notifications. Independent of the per-user allow-list.
type AllowedChat struct {
	ChatID    int64     `json:"chat_id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for AllowedChat.
func (AllowedChat) TableName() string { return "allowed_chats" }
