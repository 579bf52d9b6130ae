package user

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fkhayef/splitthebill/internal/bill"
	"github.com/fkhayef/splitthebill/pkg/validation"
)

// ErrInvalidUser is returned for malformed create-or-update payloads
var ErrInvalidUser = errors.New("invalid user payload")

// UpsertUserRequest creates a user or refreshes their profile by telegram id
type UpsertUserRequest struct {
	TelegramID int64   `json:"telegram_id" validate:"required,gt=0"`
	Username   *string `json:"username,omitempty" validate:"omitempty,max=64"`
	AvatarURL  *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

// Validate normalizes the username and checks the payload
func (r *UpsertUserRequest) Validate() error {
	if r.Username != nil {
		name := strings.TrimPrefix(strings.TrimSpace(*r.Username), "@")
		if name == "" {
			r.Username = nil
		} else {
			r.Username = &name
		}
	}

	if err := validation.Struct(r); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidUser, err)
	}
	return nil
}

// UserResponse represents the response for a single user
type UserResponse struct {
	ID         int64   `json:"id"`
	TelegramID int64   `json:"telegram_id"`
	Username   *string `json:"username,omitempty"`
	AvatarURL  *string `json:"avatar_url,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

// ToResponse converts a User model to a UserResponse DTO
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:         u.ID,
		TelegramID: u.TelegramID,
		Username:   u.Username,
		AvatarURL:  u.AvatarURL,
		CreatedAt:  u.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func billsToResponse(bills []*bill.Bill) []*bill.BillResponse {
	out := make([]*bill.BillResponse, len(bills))
	for i, b := range bills {
		out[i] = b.ToResponse()
	}
	return out
}
