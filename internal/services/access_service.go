// Package services – AccessService
//
// This file implements the AccessService, which gatekeeps who may use
// the bot. Unknown users file an access request; the operator approves
// (moving the request onto the allow-list) or rejects (dropping it).
// A separate allow-list of chats controls who receives broadcast
// certificate notifications.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/expirywatch/expirybot/internal/domain"
	"github.com/expirywatch/expirybot/internal/repo"
)

// UserInfo carries the identity fields of a requesting user as supplied
// by the chat transport.
type UserInfo struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// AccessRepo defines the repository contract required by AccessService.
type AccessRepo interface {
	IsUserAllowed(ctx context.Context, db *gorm.DB, userID int64) (bool, error)
	AddAllowedUser(ctx context.Context, db *gorm.DB, userID int64, username, firstName, lastName string) error
	AddAccessRequest(ctx context.Context, db *gorm.DB, userID int64, username, firstName, lastName string) error
	RemoveAccessRequest(ctx context.Context, db *gorm.DB, userID int64) error
	IsAccessRequestPending(ctx context.Context, db *gorm.DB, userID int64) (bool, error)
	GetAccessRequest(ctx context.Context, db *gorm.DB, userID int64) (*domain.AccessRequest, error)
	AddAllowedChat(ctx context.Context, db *gorm.DB, chatID int64) error
	IsChatAllowed(ctx context.Context, db *gorm.DB, chatID int64) (bool, error)
	ListAllowedChats(ctx context.Context, db *gorm.DB) ([]int64, error)
}

// gormAccessRepo adapts the package-level repo functions to AccessRepo.
type gormAccessRepo struct{}

func (gormAccessRepo) IsUserAllowed(ctx context.Context, db *gorm.DB, userID int64) (bool, error) {
	return repo.IsUserAllowed(ctx, db, userID)
}
func (gormAccessRepo) AddAllowedUser(ctx context.Context, db *gorm.DB, userID int64, username, firstName, lastName string) error {
	return repo.AddAllowedUser(ctx, db, userID, username, firstName, lastName)
}
func (gormAccessRepo) AddAccessRequest(ctx context.Context, db *gorm.DB, userID int64, username, firstName, lastName string) error {
	return repo.AddAccessRequest(ctx, db, userID, username, firstName, lastName)
}
func (gormAccessRepo) RemoveAccessRequest(ctx context.Context, db *gorm.DB, userID int64) error {
	return repo.RemoveAccessRequest(ctx, db, userID)
}
func (gormAccessRepo) IsAccessRequestPending(ctx context.Context, db *gorm.DB, userID int64) (bool, error) {
	return repo.IsAccessRequestPending(ctx, db, userID)
}
func (gormAccessRepo) GetAccessRequest(ctx context.Context, db *gorm.DB, userID int64) (*domain.AccessRequest, error) {
	return repo.GetAccessRequest(ctx, db, userID)
}
func (gormAccessRepo) AddAllowedChat(ctx context.Context, db *gorm.DB, chatID int64) error {
	return repo.AddAllowedChat(ctx, db, chatID)
}
func (gormAccessRepo) IsChatAllowed(ctx context.Context, db *gorm.DB, chatID int64) (bool, error) {
	return repo.IsChatAllowed(ctx, db, chatID)
}
func (gormAccessRepo) ListAllowedChats(ctx context.Context, db *gorm.DB) ([]int64, error) {
	return repo.ListAllowedChats(ctx, db)
}

// RequestOutcome describes what happened to an access request.
type RequestOutcome int

const (
	// RequestFiled means a new request was recorded and the operator
	// should be prompted.
	RequestFiled RequestOutcome = iota
	// RequestAlreadyPending means an unresolved request already exists.
	RequestAlreadyPending
	// RequestAlreadyAllowed means the user is already on the allow-list.
	RequestAlreadyAllowed
)

// AccessService implements the allow-list state machine. The operator
// identified by OperatorID always has access.
type AccessService struct {
	DB         *gorm.DB
	Repo       AccessRepo
	OperatorID int64
}

// NewAccessService constructs an AccessService over the gorm-backed repo.
func NewAccessService(db *gorm.DB, operatorID int64) *AccessService {
	return &AccessService{DB: db, Repo: gormAccessRepo{}, OperatorID: operatorID}
}

// IsAllowed reports whether the user may use the bot.
func (s *AccessService) IsAllowed(ctx context.Context, userID int64) (bool, error) {
	if userID == s.OperatorID {
		return true, nil
	}
	return s.Repo.IsUserAllowed(ctx, s.DB, userID)
}

// Request files an access request for the user, unless one is already
// pending or the user is already allowed.
func (s *AccessService) Request(ctx context.Context, user UserInfo) (RequestOutcome, error) {
	pending, err := s.Repo.IsAccessRequestPending(ctx, s.DB, user.ID)
	if err != nil {
		return 0, err
	}
	if pending {
		return RequestAlreadyPending, nil
	}

	allowed, err := s.Repo.IsUserAllowed(ctx, s.DB, user.ID)
	if err != nil {
		return 0, err
	}
	if allowed {
		return RequestAlreadyAllowed, nil
	}

	if err := s.Repo.AddAccessRequest(ctx, s.DB, user.ID, user.Username, user.FirstName, user.LastName); err != nil {
		return 0, err
	}
	return RequestFiled, nil
}

// Approve resolves a pending request by moving the user onto the
// allow-list. ErrRequestNotFound when no request is pending.
func (s *AccessService) Approve(ctx context.Context, userID int64) error {
	r, err := s.Repo.GetAccessRequest(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrRequestNotFound
		}
		return err
	}
	if err := s.Repo.AddAllowedUser(ctx, s.DB, r.UserID, r.Username, r.FirstName, r.LastName); err != nil {
		return err
	}
	return s.Repo.RemoveAccessRequest(ctx, s.DB, userID)
}

// Reject drops a pending request without granting access.
func (s *AccessService) Reject(ctx context.Context, userID int64) error {
	pending, err := s.Repo.IsAccessRequestPending(ctx, s.DB, userID)
	if err != nil {
		return err
	}
	if !pending {
		return ErrRequestNotFound
	}
	return s.Repo.RemoveAccessRequest(ctx, s.DB, userID)
}

// AllowChat marks a chat as eligible for broadcast notifications.
func (s *AccessService) AllowChat(ctx context.Context, chatID int64) error {
	return s.Repo.AddAllowedChat(ctx, s.DB, chatID)
}

// AllowedChats returns every broadcast-eligible chat. Satisfies
// notify.ChatSource.
func (s *AccessService) AllowedChats(ctx context.Context) ([]int64, error) {
	return s.Repo.ListAllowedChats(ctx, s.DB)
}
