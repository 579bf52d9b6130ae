package bill

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/splitthebill/pkg/middleware"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newServer(t *testing.T) (*fixture, *httptest.Server) {
	t.Helper()
	f := newFixture(t)

	r := chi.NewRouter()
	r.Use(middleware.Identity)
	r.Mount("/bills", NewHandler(f.svc).Routes())

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return f, srv
}

func call(t *testing.T, srv *httptest.Server, method, path string, user int64, body string) (int, envelope) {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if user != 0 {
		req.Header.Set(middleware.UserHeader, fmt.Sprint(user))
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode, env
}

func TestHandler_BillFlow(t *testing.T) {
	_, srv := newServer(t)

	status, env := call(t, srv, http.MethodPost, "/bills", alice, `{"title":"Pizza","total_sum":"1000","include_owner":true}`)
	require.Equal(t, http.StatusCreated, status)
	var created BillResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "1000", created.UnallocatedSum.String())

	base := fmt.Sprintf("/bills/%d", created.ID)

	status, _ = call(t, srv, http.MethodPost, base+"/participants", alice, `{"guest_name":"Dana"}`)
	require.Equal(t, http.StatusCreated, status)
	status, _ = call(t, srv, http.MethodPost, base+"/join", bob, ``)
	require.Equal(t, http.StatusOK, status)

	status, env = call(t, srv, http.MethodPost, base+"/split-equally", alice, ``)
	require.Equal(t, http.StatusOK, status)
	var ps []*ParticipantResponse
	require.NoError(t, json.Unmarshal(env.Data, &ps))
	require.Len(t, ps, 3)
	assert.Equal(t, "333.34", ps[0].AllocatedAmount.String())
	assert.Equal(t, "333.33", ps[1].AllocatedAmount.String())

	status, env = call(t, srv, http.MethodGet, base, 0, ``)
	require.Equal(t, http.StatusOK, status)
	var detail DetailResponse
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.True(t, detail.UnallocatedSum.IsZero())
	assert.Equal(t, "equal", detail.SplitType)
}

func TestHandler_Errors(t *testing.T) {
	_, srv := newServer(t)

	status, env := call(t, srv, http.MethodPost, "/bills", alice, `{"total_sum":"100","include_owner":true}`)
	require.Equal(t, http.StatusCreated, status)
	var created BillResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	base := fmt.Sprintf("/bills/%d", created.ID)

	status, env = call(t, srv, http.MethodGet, base, 0, ``)
	require.Equal(t, http.StatusOK, status)
	var detail DetailResponse
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	ownerRow := detail.Participants[0].ID

	tests := []struct {
		name       string
		method     string
		path       string
		user       int64
		body       string
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"missing identity", http.MethodPost, base + "/split-equally", 0, ``, http.StatusUnauthorized, "UNAUTHORIZED", ""},
		{"not owner", http.MethodPost, base + "/split-equally", bob, ``, http.StatusForbidden, "FORBIDDEN", ""},
		{"unknown bill", http.MethodGet, "/bills/999", 0, ``, http.StatusNotFound, "NOT_FOUND", ""},
		{"bad bill id", http.MethodGet, "/bills/abc", 0, ``, http.StatusBadRequest, "BAD_REQUEST", "Invalid bill ID"},
		{"validation", http.MethodPost, "/bills", alice, `{"total_sum":"0"}`, http.StatusBadRequest, "BAD_REQUEST", ""},
		{"over assignment", http.MethodPost, base + "/assign", alice, fmt.Sprintf(`{"participant_id":%d,"amount":"150"}`, ownerRow),
			http.StatusBadRequest, "BAD_REQUEST", "Amount exceeds unallocated sum. Max available: 100"},
		{"owner row removal", http.MethodDelete, fmt.Sprintf("%s/participants/%d", base, ownerRow), alice, ``, http.StatusBadRequest, "BAD_REQUEST", ""},
		{"nothing to pay", http.MethodPatch, fmt.Sprintf("%s/participants/%d/payment", base, ownerRow), alice, `{"is_paid":true}`,
			http.StatusBadRequest, "BAD_REQUEST", "cannot mark as paid with zero allocated amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := call(t, srv, tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.wantStatus, status)
			require.NotNil(t, env.Error)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, env.Error.Message)
			}
		})
	}
}

func TestHandler_AddParticipantConflict(t *testing.T) {
	_, srv := newServer(t)

	status, env := call(t, srv, http.MethodPost, "/bills", alice, `{"total_sum":"10"}`)
	require.Equal(t, http.StatusCreated, status)
	var created BillResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	path := fmt.Sprintf("/bills/%d/participants", created.ID)

	status, _ = call(t, srv, http.MethodPost, path, alice, fmt.Sprintf(`{"user_id":%d}`, bob))
	require.Equal(t, http.StatusCreated, status)
	status, _ = call(t, srv, http.MethodPost, path, alice, fmt.Sprintf(`{"user_id":%d}`, bob))
	assert.Equal(t, http.StatusConflict, status)
	status, _ = call(t, srv, http.MethodPost, path, alice, `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
}
