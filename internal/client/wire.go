package client

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/splitthebill/internal/amount"
	"github.com/fkhayef/splitthebill/internal/bill/split"
	"github.com/fkhayef/splitthebill/internal/ledger"
	"github.com/fkhayef/splitthebill/internal/settlement"
)

const timeLayout = "2006-01-02T15:04:05Z"

// money decodes amounts sent either as JSON numbers or as strings like "12,50"
type money struct{ decimal.Decimal }

func (m *money) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	m.Decimal = amount.ParseAny(v)
	return nil
}

func (m money) minor() int64 { return amount.ToMinor(m.Decimal) }

// envelope mirrors the API's response wrapper
type envelope[T any] struct {
	Success bool      `json:"success"`
	Data    T         `json:"data"`
	Error   *apiError `json:"error"`
	Meta    *Page     `json:"meta"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Page is the pagination block of list responses
type Page struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// User is a registered account
type User struct {
	ID         int64   `json:"id"`
	TelegramID int64   `json:"telegram_id"`
	Username   *string `json:"username,omitempty"`
	AvatarURL  *string `json:"avatar_url,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

// Profile is what login sends to register or refresh a user
type Profile struct {
	TelegramID int64   `json:"telegram_id"`
	Username   *string `json:"username,omitempty"`
	AvatarURL  *string `json:"avatar_url,omitempty"`
}

// NewBill describes a bill to create. TotalSum is in minor units.
type NewBill struct {
	Title          string
	TotalSum       int64
	PaymentDetails *string
	IncludeOwner   bool
}

type newBillBody struct {
	Title          string          `json:"title"`
	TotalSum       decimal.Decimal `json:"total_sum"`
	PaymentDetails *string         `json:"payment_details,omitempty"`
	IncludeOwner   bool            `json:"include_owner"`
}

type billBody struct {
	ID                int64   `json:"id"`
	OwnerID           int64   `json:"owner_id"`
	Title             string  `json:"title"`
	TotalSum          money   `json:"total_sum"`
	UnallocatedSum    money   `json:"unallocated_sum"`
	PaymentDetails    *string `json:"payment_details,omitempty"`
	IsClosed          bool    `json:"is_closed"`
	SplitType         string  `json:"split_type"`
	Status            string  `json:"status"`
	CreatedAt         string  `json:"created_at"`
	ParticipantsCount int     `json:"participants_count"`
}

func (b billBody) model() ledger.Bill {
	created, _ := time.Parse(timeLayout, b.CreatedAt)
	return ledger.Bill{
		ID:                b.ID,
		OwnerID:           b.OwnerID,
		Title:             b.Title,
		TotalSum:          b.TotalSum.minor(),
		UnallocatedSum:    b.UnallocatedSum.minor(),
		PaymentDetails:    b.PaymentDetails,
		IsClosed:          b.IsClosed,
		SplitType:         split.Mode(b.SplitType),
		Status:            settlement.BillStatus(b.Status),
		CreatedAt:         created,
		ParticipantsCount: b.ParticipantsCount,
	}
}

type itemBody struct {
	ID               int64  `json:"id"`
	BillID           int64  `json:"bill_id"`
	Name             string `json:"name"`
	Price            money  `json:"price"`
	Count            int    `json:"count"`
	ItemSum          money  `json:"item_sum"`
	AssignedToUserID *int64 `json:"assigned_to_user_id,omitempty"`
}

func (it itemBody) model() ledger.Item {
	return ledger.Item{
		ID:               it.ID,
		BillID:           it.BillID,
		Name:             it.Name,
		Price:            it.Price.minor(),
		Count:            it.Count,
		ItemSum:          it.ItemSum.minor(),
		AssignedToUserID: it.AssignedToUserID,
	}
}

type newItemBody struct {
	Name             string          `json:"name"`
	Price            decimal.Decimal `json:"price"`
	Count            int             `json:"count"`
	AssignedToUserID *int64          `json:"assigned_to_user_id,omitempty"`
}

type participantBody struct {
	ID              int64   `json:"id"`
	BillID          int64   `json:"bill_id"`
	UserID          *int64  `json:"user_id,omitempty"`
	GuestName       *string `json:"guest_name,omitempty"`
	Username        *string `json:"username,omitempty"`
	AvatarURL       *string `json:"avatar_url,omitempty"`
	AllocatedAmount money   `json:"allocated_amount"`
	IsPaid          bool    `json:"is_paid"`
}

func (p participantBody) model() ledger.Participant {
	return ledger.Participant{
		ID:              p.ID,
		BillID:          p.BillID,
		UserID:          p.UserID,
		GuestName:       p.GuestName,
		Username:        p.Username,
		AvatarURL:       p.AvatarURL,
		AllocatedAmount: p.AllocatedAmount.minor(),
		IsPaid:          p.IsPaid,
	}
}

func participants(in []participantBody) []ledger.Participant {
	out := make([]ledger.Participant, len(in))
	for i, p := range in {
		out[i] = p.model()
	}
	return out
}

type detailBody struct {
	billBody
	ItemsTotal   money             `json:"items_total"`
	Items        []itemBody        `json:"items"`
	Participants []participantBody `json:"participants"`
}

func (d detailBody) model() *ledger.State {
	st := &ledger.State{
		Bill:         d.billBody.model(),
		Items:        make([]ledger.Item, len(d.Items)),
		Participants: participants(d.Participants),
		ItemsTotal:   d.ItemsTotal.minor(),
	}
	for i, it := range d.Items {
		st.Items[i] = it.model()
	}
	return st
}
