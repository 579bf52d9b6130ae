package bill

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/splitthebill/internal/amount"
	"github.com/fkhayef/splitthebill/pkg/validation"
)

// ErrValidation marks request payloads rejected before touching storage
var ErrValidation = errors.New("validation failed")

const timeLayout = "2006-01-02T15:04:05Z"

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// check runs the struct's validate tags
func check(req any) error {
	if err := validation.Struct(req); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err)
	}
	return nil
}

// minor converts a request amount, refusing values too large to store
func minor(field string, d decimal.Decimal) (int64, error) {
	m, err := amount.CheckedMinor(d)
	if err != nil {
		return 0, invalid("%s must be at most %s", field, amount.FromMinor(amount.MaxMinor))
	}
	return m, nil
}

// CreateBillRequest represents the request to create a bill
type CreateBillRequest struct {
	OwnerID        int64           `json:"owner_id,omitempty"` // defaults to the caller
	Title          string          `json:"title" validate:"max=100"`
	TotalSum       decimal.Decimal `json:"total_sum" validate:"required,gt=0"`
	PaymentDetails *string         `json:"payment_details,omitempty"`
	IncludeOwner   bool            `json:"include_owner"`
}

// Validate checks the request the same way the client forms do
func (r *CreateBillRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if err := check(r); err != nil {
		return err
	}

	total, err := minor("total_sum", r.TotalSum)
	if err != nil {
		return err
	}
	if total <= 0 {
		return invalid("total_sum must be at least 0.01")
	}
	return nil
}

// AddItemRequest represents the request to add a line item
type AddItemRequest struct {
	Name             string          `json:"name" validate:"required,min=1,max=100"`
	Price            decimal.Decimal `json:"price" validate:"required,gt=0"`
	Count            int             `json:"count" validate:"min=1"`
	AssignedToUserID *int64          `json:"assigned_to_user_id,omitempty"`
}

// Validate checks name, price and count, and that price times count fits
func (r *AddItemRequest) Validate() error {
	_, _, err := r.amounts()
	return err
}

// amounts validates the request and returns the unit price and line sum in minor units
func (r *AddItemRequest) amounts() (price, sum int64, err error) {
	r.Name = strings.TrimSpace(r.Name)
	if err := check(r); err != nil {
		return 0, 0, err
	}

	if price, err = minor("price", r.Price); err != nil {
		return 0, 0, err
	}
	if sum, err = minor("item sum", r.Price.Mul(decimal.NewFromInt(int64(r.Count)))); err != nil {
		return 0, 0, err
	}
	return price, sum, nil
}

// AddParticipantRequest adds either a registered user or a guest
type AddParticipantRequest struct {
	UserID    *int64  `json:"user_id,omitempty" validate:"omitempty,gt=0"`
	GuestName *string `json:"guest_name,omitempty" validate:"omitempty,min=1,max=50"`
}

// Validate requires an identity source; a user id wins over a guest name
func (r *AddParticipantRequest) Validate() error {
	if r.UserID == nil && r.GuestName == nil {
		return ErrParticipantIdentity
	}
	if r.GuestName != nil {
		name := strings.TrimSpace(*r.GuestName)
		r.GuestName = &name
	}
	return check(r)
}

// AssignAmountRequest sets one participant's allocation
type AssignAmountRequest struct {
	ParticipantID int64           `json:"participant_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
}

// Validate checks the target and converts the amount to minor units.
// Negative amounts are left to the split rules.
func (r *AssignAmountRequest) Validate() (int64, error) {
	if err := check(r); err != nil {
		return 0, err
	}
	return minor("amount", r.Amount)
}

// SplitRemainderRequest shares the remainder among the listed participants
type SplitRemainderRequest struct {
	ParticipantIDs []int64 `json:"participant_ids"`
}

// PaymentStatusRequest sets a participant's paid flag
type PaymentStatusRequest struct {
	IsPaid bool `json:"is_paid"`
}

// BillResponse represents the response for a bill
type BillResponse struct {
	ID                int64           `json:"id"`
	OwnerID           int64           `json:"owner_id"`
	Title             string          `json:"title"`
	TotalSum          decimal.Decimal `json:"total_sum"`
	UnallocatedSum    decimal.Decimal `json:"unallocated_sum"`
	PaymentDetails    *string         `json:"payment_details,omitempty"`
	IsClosed          bool            `json:"is_closed"`
	SplitType         string          `json:"split_type"`
	Status            string          `json:"status"`
	CreatedAt         string          `json:"created_at"`
	ParticipantsCount int             `json:"participants_count,omitempty"`
}

// ItemResponse represents the response for an item
type ItemResponse struct {
	ID               int64           `json:"id"`
	BillID           int64           `json:"bill_id"`
	Name             string          `json:"name"`
	Price            decimal.Decimal `json:"price"`
	Count            int             `json:"count"`
	ItemSum          decimal.Decimal `json:"item_sum"`
	AssignedToUserID *int64          `json:"assigned_to_user_id,omitempty"`
}

// ParticipantResponse represents the response for a participant
type ParticipantResponse struct {
	ID              int64           `json:"id"`
	BillID          int64           `json:"bill_id"`
	UserID          *int64          `json:"user_id,omitempty"`
	GuestName       *string         `json:"guest_name,omitempty"`
	Username        *string         `json:"username,omitempty"`
	AvatarURL       *string         `json:"avatar_url,omitempty"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
	IsPaid          bool            `json:"is_paid"`
}

// DetailResponse is a bill with its items and participants
type DetailResponse struct {
	BillResponse
	ItemsTotal   decimal.Decimal        `json:"items_total"`
	Items        []*ItemResponse        `json:"items"`
	Participants []*ParticipantResponse `json:"participants"`
}

// ToResponse converts a Bill model to a BillResponse DTO
func (b *Bill) ToResponse() *BillResponse {
	return &BillResponse{
		ID:                b.ID,
		OwnerID:           b.OwnerID,
		Title:             b.Title,
		TotalSum:          amount.FromMinor(b.TotalSum),
		UnallocatedSum:    amount.FromMinor(b.UnallocatedSum),
		PaymentDetails:    b.PaymentDetails,
		IsClosed:          b.IsClosed,
		SplitType:         string(b.SplitType),
		Status:            string(b.Status),
		CreatedAt:         b.CreatedAt.UTC().Format(timeLayout),
		ParticipantsCount: b.ParticipantsCount,
	}
}

// ToResponse converts an Item model to an ItemResponse DTO
func (it *Item) ToResponse() *ItemResponse {
	return &ItemResponse{
		ID:               it.ID,
		BillID:           it.BillID,
		Name:             it.Name,
		Price:            amount.FromMinor(it.Price),
		Count:            it.Count,
		ItemSum:          amount.FromMinor(it.ItemSum),
		AssignedToUserID: it.AssignedToUserID,
	}
}

// ToResponse converts a Participant model to a ParticipantResponse DTO
func (p *Participant) ToResponse() *ParticipantResponse {
	return &ParticipantResponse{
		ID:              p.ID,
		BillID:          p.BillID,
		UserID:          p.UserID,
		GuestName:       p.GuestName,
		Username:        p.Username,
		AvatarURL:       p.AvatarURL,
		AllocatedAmount: amount.FromMinor(p.AllocatedAmount),
		IsPaid:          p.IsPaid,
	}
}

// ToResponse converts a Detail to a DetailResponse DTO
func (d *Detail) ToResponse() *DetailResponse {
	resp := &DetailResponse{
		BillResponse: *d.Bill.ToResponse(),
		ItemsTotal:   amount.FromMinor(d.ItemsTotal()),
		Items:        make([]*ItemResponse, len(d.Items)),
		Participants: ParticipantsToResponse(d.Participants),
	}
	for i, it := range d.Items {
		resp.Items[i] = it.ToResponse()
	}
	return resp
}

// ParticipantsToResponse converts a participant list
func ParticipantsToResponse(participants []*Participant) []*ParticipantResponse {
	out := make([]*ParticipantResponse, len(participants))
	for i, p := range participants {
		out[i] = p.ToResponse()
	}
	return out
}
