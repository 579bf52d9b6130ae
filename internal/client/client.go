// Package client talks to the bill API over HTTP. It implements
// ledger.Backend and the account calls the CLI needs.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/fkhayef/splitthebill/internal/amount"
	"github.com/fkhayef/splitthebill/internal/ledger"
	"github.com/fkhayef/splitthebill/pkg/middleware"
)

// APIError is a rejection reported by the backend. Error returns the
// backend's message verbatim so it can be shown to the user as is.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client is a REST client bound to one acting user
type Client struct {
	baseURL string
	userID  int64
	http    *resty.Client
}

// Option configures a Client
type Option func(*Client)

// WithUserID sets the user every request acts as
func WithUserID(id int64) Option {
	return func(c *Client) { c.userID = id }
}

// New creates a client for the API rooted at baseURL, e.g. http://localhost:8080/api
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/")}
	c.http = resty.New().
		SetBaseURL(c.baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetLogger(slogLogger{})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root
func (c *Client) BaseURL() string { return c.baseURL }

// UserID returns the acting user, zero when anonymous
func (c *Client) UserID() int64 { return c.userID }

// As returns a copy of the client acting as userID. The copies share one
// connection pool.
func (c *Client) As(userID int64) *Client {
	cp := *c
	cp.userID = userID
	return &cp
}

// Headers returns the identity headers for side channels such as the event stream
func (c *Client) Headers() map[string]string {
	if c.userID == 0 {
		return nil
	}
	return map[string]string{middleware.UserHeader: strconv.FormatInt(c.userID, 10)}
}

var _ ledger.Backend = (*Client)(nil)

func (c *Client) do(ctx context.Context, method, path string, body, out any) (*Page, error) {
	var env envelope[json.RawMessage]
	req := c.http.R().
		SetContext(ctx).
		SetHeaders(c.Headers()).
		SetResult(&env).
		SetError(&env)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		slog.Debug("request failed", "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("%w: %v", ledger.ErrRequestFailed, err)
	}

	if resp.StatusCode() == http.StatusNoContent {
		return nil, nil
	}

	if resp.IsError() || !env.Success {
		if env.Error == nil {
			return nil, fmt.Errorf("%w: status %d", ledger.ErrRequestFailed, resp.StatusCode())
		}
		return nil, &APIError{Status: resp.StatusCode(), Code: env.Error.Code, Message: env.Error.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", ledger.ErrRequestFailed, path, err)
		}
	}
	return env.Meta, nil
}

// slogLogger routes resty's own diagnostics through slog
type slogLogger struct{}

func (slogLogger) Errorf(format string, v ...any) { slog.Error(fmt.Sprintf(format, v...)) }
func (slogLogger) Warnf(format string, v ...any)  { slog.Warn(fmt.Sprintf(format, v...)) }
func (slogLogger) Debugf(format string, v ...any) { slog.Debug(fmt.Sprintf(format, v...)) }

func billPath(billID int64, rest ...string) string {
	p := "/bills/" + strconv.FormatInt(billID, 10)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// UpsertUser registers or refreshes a profile
func (c *Client) UpsertUser(ctx context.Context, p Profile) (*User, error) {
	var u User
	if _, err := c.do(ctx, http.MethodPost, "/users", p, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser fetches one user
func (c *Client) GetUser(ctx context.Context, id int64) (*User, error) {
	var u User
	if _, err := c.do(ctx, http.MethodGet, "/users/"+strconv.FormatInt(id, 10), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListBills returns one page of the bills userID owns or takes part in
func (c *Client) ListBills(ctx context.Context, userID int64, page, limit int) ([]ledger.Bill, *Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var body []billBody
	meta, err := c.do(ctx, http.MethodGet, "/users/"+strconv.FormatInt(userID, 10)+"/bills?"+q.Encode(), nil, &body)
	if err != nil {
		return nil, nil, err
	}

	bills := make([]ledger.Bill, len(body))
	for i, b := range body {
		bills[i] = b.model()
	}
	return bills, meta, nil
}

// CreateBill opens a new bill owned by the acting user
func (c *Client) CreateBill(ctx context.Context, nb NewBill) (*ledger.Bill, error) {
	var b billBody
	req := newBillBody{
		Title:          nb.Title,
		TotalSum:       amount.FromMinor(nb.TotalSum),
		PaymentDetails: nb.PaymentDetails,
		IncludeOwner:   nb.IncludeOwner,
	}
	if _, err := c.do(ctx, http.MethodPost, "/bills", req, &b); err != nil {
		return nil, err
	}
	bill := b.model()
	return &bill, nil
}

// GetBill fetches a bill with its items and participants
func (c *Client) GetBill(ctx context.Context, billID int64) (*ledger.State, error) {
	var d detailBody
	if _, err := c.do(ctx, http.MethodGet, billPath(billID), nil, &d); err != nil {
		return nil, err
	}
	return d.model(), nil
}

// Join adds the acting user to a bill
func (c *Client) Join(ctx context.Context, billID int64) (*ledger.Participant, error) {
	var p participantBody
	if _, err := c.do(ctx, http.MethodPost, billPath(billID, "join"), nil, &p); err != nil {
		return nil, err
	}
	m := p.model()
	return &m, nil
}

// CloseBill closes a bill; only its owner may
func (c *Client) CloseBill(ctx context.Context, billID int64) (*ledger.Bill, error) {
	var b billBody
	if _, err := c.do(ctx, http.MethodPost, billPath(billID, "close"), nil, &b); err != nil {
		return nil, err
	}
	bill := b.model()
	return &bill, nil
}

// SplitEqually divides the whole bill among unpaid participants
func (c *Client) SplitEqually(ctx context.Context, billID int64) ([]ledger.Participant, error) {
	var body []participantBody
	if _, err := c.do(ctx, http.MethodPost, billPath(billID, "split-equally"), nil, &body); err != nil {
		return nil, err
	}
	return participants(body), nil
}

// SplitRemainder shares the unallocated sum among the given participants
func (c *Client) SplitRemainder(ctx context.Context, billID int64, participantIDs []int64) ([]ledger.Participant, error) {
	req := map[string][]int64{"participant_ids": participantIDs}

	var body []participantBody
	if _, err := c.do(ctx, http.MethodPost, billPath(billID, "split-remainder"), req, &body); err != nil {
		return nil, err
	}
	return participants(body), nil
}

// AssignAmount sets one participant's allocation, in minor units
func (c *Client) AssignAmount(ctx context.Context, billID, participantID, minor int64) (*ledger.Participant, error) {
	req := map[string]any{
		"participant_id": participantID,
		"amount":         amount.FromMinor(minor),
	}

	var p participantBody
	if _, err := c.do(ctx, http.MethodPost, billPath(billID, "assign"), req, &p); err != nil {
		return nil, err
	}
	m := p.model()
	return &m, nil
}

// SetPaymentStatus marks a participant paid or unpaid
func (c *Client) SetPaymentStatus(ctx context.Context, billID, participantID int64, isPaid bool) (*ledger.Participant, error) {
	req := map[string]bool{"is_paid": isPaid}
	path := billPath(billID, "participants", strconv.FormatInt(participantID, 10), "payment")

	var p participantBody
	if _, err := c.do(ctx, http.MethodPatch, path, req, &p); err != nil {
		return nil, err
	}
	m := p.model()
	return &m, nil
}

// AddItem adds a line item
func (c *Client) AddItem(ctx context.Context, billID int64, d ledger.ItemDraft) (*ledger.Item, error) {
	req := newItemBody{
		Name:             d.Name,
		Price:            amount.FromMinor(d.Price),
		Count:            d.Count,
		AssignedToUserID: d.AssignedToUserID,
	}

	var it itemBody
	if _, err := c.do(ctx, http.MethodPost, billPath(billID, "items"), req, &it); err != nil {
		return nil, err
	}
	m := it.model()
	return &m, nil
}

// RemoveItem deletes a line item
func (c *Client) RemoveItem(ctx context.Context, billID, itemID int64) error {
	_, err := c.do(ctx, http.MethodDelete, billPath(billID, "items", strconv.FormatInt(itemID, 10)), nil, nil)
	return err
}

// AddParticipant adds a registered user or a guest and returns the new participant list
func (c *Client) AddParticipant(ctx context.Context, billID int64, d ledger.ParticipantDraft) ([]ledger.Participant, error) {
	req := map[string]any{}
	if d.UserID != nil {
		req["user_id"] = *d.UserID
	}
	if d.GuestName != nil {
		req["guest_name"] = *d.GuestName
	}

	var body []participantBody
	if _, err := c.do(ctx, http.MethodPost, billPath(billID, "participants"), req, &body); err != nil {
		return nil, err
	}
	return participants(body), nil
}

// RemoveParticipant deletes a participant and returns the updated bill
func (c *Client) RemoveParticipant(ctx context.Context, billID, participantID int64) (*ledger.State, error) {
	var d detailBody
	if _, err := c.do(ctx, http.MethodDelete, billPath(billID, "participants", strconv.FormatInt(participantID, 10)), nil, &d); err != nil {
		return nil, err
	}
	return d.model(), nil
}

// React broadcasts an emoji to everyone watching the bill
func (c *Client) React(ctx context.Context, billID int64, emoji string) error {
	if c.userID == 0 {
		return errors.New("reacting requires a logged in user")
	}
	req := map[string]any{"user_id": c.userID, "emoji": emoji}
	_, err := c.do(ctx, http.MethodPost, billPath(billID, "reactions"), req, nil)
	return err
}
