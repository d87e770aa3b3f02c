// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the access
// control tables: allowed users, pending access requests, and chats
// eligible for broadcast notifications.
//
// Membership inserts are idempotent (insert-or-ignore) so that replayed
// chat commands never fail on primary-key conflicts.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/expirywatch/expirybot/internal/domain"
)

// AddAllowedUser adds a user to the allow-list. Re-adding an existing
// user is a no-op.
func AddAllowedUser(ctx context.Context, db *gorm.DB, userID int64, username, firstName, lastName string) error {
	u := &domain.AllowedUser{
		UserID:    userID,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(u).Error
}

// IsUserAllowed reports whether userID is on the allow-list.
func IsUserAllowed(ctx context.Context, db *gorm.DB, userID int64) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.AllowedUser{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count > 0, err
}

// AddAccessRequest records a pending access request. Duplicate requests
// from the same user are a no-op.
func AddAccessRequest(ctx context.Context, db *gorm.DB, userID int64, username, firstName, lastName string) error {
	r := &domain.AccessRequest{
		UserID:    userID,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(r).Error
}

// RemoveAccessRequest deletes a pending access request, if any.
func RemoveAccessRequest(ctx context.Context, db *gorm.DB, userID int64) error {
	return db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.AccessRequest{}).Error
}

// IsAccessRequestPending reports whether userID has an unresolved
// access request.
func IsAccessRequestPending(ctx context.Context, db *gorm.DB, userID int64) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.AccessRequest{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count > 0, err
}

// GetAccessRequest fetches a pending access request, or ErrNotFound.
func GetAccessRequest(ctx context.Context, db *gorm.DB, userID int64) (*domain.AccessRequest, error) {
	var r domain.AccessRequest
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// AddAllowedChat marks a chat as eligible for broadcast notifications.
// Re-approving an existing chat is a no-op.
func AddAllowedChat(ctx context.Context, db *gorm.DB, chatID int64) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.AllowedChat{ChatID: chatID}).Error
}

// IsChatAllowed reports whether chatID may receive broadcasts.
func IsChatAllowed(ctx context.Context, db *gorm.DB, chatID int64) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.AllowedChat{}).
		Where("chat_id = ?", chatID).
		Count(&count).Error
	return count > 0, err
}

// ListAllowedChats returns the chat identifiers of every approved chat.
func ListAllowedChats(ctx context.Context, db *gorm.DB) ([]int64, error) {
	var out []int64
	err := db.WithContext(ctx).
		Model(&domain.AllowedChat{}).
		Order("chat_id asc").
		Pluck("chat_id", &out).Error
	return out, err
}
