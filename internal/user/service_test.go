package user

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/splitthebill/internal/bill"
	"github.com/fkhayef/splitthebill/internal/bill/split"
	"github.com/fkhayef/splitthebill/internal/database"
)

type noopNotifier struct{}

func (noopNotifier) NotifyRefresh(int64) {}

func setup(t *testing.T) (*Service, *bill.Service) {
	t.Helper()

	db, err := database.NewSQLiteConnection(context.Background(), filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bills := bill.NewService(bill.NewRepository(db), split.NewFactory(), noopNotifier{})
	return NewService(NewRepository(db), bills), bills
}

func str(s string) *string { return &s }

func TestCreateOrUpdate(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	u, err := svc.CreateOrUpdate(ctx, &UpsertUserRequest{TelegramID: 555, Username: str(" @ann "), AvatarURL: str("https://a/1.png")})
	require.NoError(t, err)
	require.NotNil(t, u.Username)
	assert.Equal(t, "ann", *u.Username)

	// a profile refresh without an avatar keeps the stored one
	again, err := svc.CreateOrUpdate(ctx, &UpsertUserRequest{TelegramID: 555, Username: str("annie")})
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "annie", *again.Username)
	require.NotNil(t, again.AvatarURL)
	assert.Equal(t, "https://a/1.png", *again.AvatarURL)

	_, err = svc.CreateOrUpdate(ctx, &UpsertUserRequest{})
	assert.ErrorIs(t, err, ErrInvalidUser)
	_, err = svc.CreateOrUpdate(ctx, &UpsertUserRequest{TelegramID: -1})
	assert.ErrorIs(t, err, ErrInvalidUser)
	_, err = svc.CreateOrUpdate(ctx, &UpsertUserRequest{TelegramID: 556, AvatarURL: str("not a url")})
	assert.ErrorIs(t, err, ErrInvalidUser)
	assert.ErrorContains(t, err, "avatar_url")
}

func TestGetByID_NotFound(t *testing.T) {
	svc, _ := setup(t)

	_, err := svc.GetByID(context.Background(), 77)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestHandler_ListBills(t *testing.T) {
	svc, bills := setup(t)
	ctx := context.Background()

	u, err := svc.CreateOrUpdate(ctx, &UpsertUserRequest{TelegramID: 1})
	require.NoError(t, err)
	for i := 1; i <= 3; i++ {
		_, err := bills.CreateBill(ctx, u.ID, &bill.CreateBillRequest{Title: fmt.Sprint("bill ", i), TotalSum: decimal.NewFromInt(int64(i))})
		require.NoError(t, err)
	}

	r := chi.NewRouter()
	r.Mount("/users", NewHandler(svc).Routes())
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(fmt.Sprintf("%s/users/%d/bills?page=2&limit=2", srv.URL, u.ID))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data []bill.BillResponse `json:"data"`
		Meta struct {
			Page       int `json:"page"`
			PerPage    int `json:"per_page"`
			Total      int `json:"total"`
			TotalPages int `json:"total_pages"`
		} `json:"meta"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "bill 1", body.Data[0].Title)
	assert.Equal(t, 3, body.Meta.Total)
	assert.Equal(t, 2, body.Meta.TotalPages)

	missing, err := http.Get(srv.URL + "/users/999/bills")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestHandler_CreateOrUpdate(t *testing.T) {
	svc, _ := setup(t)

	r := chi.NewRouter()
	r.Mount("/users", NewHandler(svc).Routes())
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/users", "application/json", strings.NewReader(`{"telegram_id":9,"username":"zed"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	bad, err := http.Post(srv.URL+"/users", "application/json", strings.NewReader(`{"telegram_id":0}`))
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}
