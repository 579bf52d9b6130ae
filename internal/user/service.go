package user

import (
	"context"
	"errors"
	"time"

	"github.com/fkhayef/splitthebill/internal/bill"
)

// ErrUserNotFound is returned when no user has the requested id
var ErrUserNotFound = errors.New("user not found")

// BillLister lists the bills a user owns or participates in
type BillLister interface {
	ListForUser(ctx context.Context, userID int64, page, limit int) ([]*bill.Bill, int, error)
}

// Service handles user business logic
type Service struct {
	repo  *Repository
	bills BillLister
	now   func() time.Time
}

// NewService creates a new user service with dependencies injected
func NewService(repo *Repository, bills BillLister) *Service {
	return &Service{repo: repo, bills: bills, now: time.Now}
}

// CreateOrUpdate registers the user on first sight and refreshes their profile afterwards
func (s *Service) CreateOrUpdate(ctx context.Context, req *UpsertUserRequest) (*User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Upsert(ctx, req, s.now())
}

// GetByID retrieves a user by their ID
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// ListBills returns one page of the user's bills, newest first
func (s *Service) ListBills(ctx context.Context, userID int64, page, limit int) ([]*bill.Bill, int, error) {
	if _, err := s.GetByID(ctx, userID); err != nil {
		return nil, 0, err
	}
	return s.bills.ListForUser(ctx, userID, page, limit)
}
