package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/AyuTriphasari/baget/internal/errors"
	"github.com/AyuTriphasari/baget/internal/logging"
	"github.com/AyuTriphasari/baget/internal/models"
	"github.com/AyuTriphasari/baget/internal/service"
	"github.com/AyuTriphasari/baget/internal/storage"
)

// Mock services for testing

type mockSigner struct {
	signFunc func(ctx context.Context, req *service.SignRequest) (*service.SignResponse, error)
	calls    int
}

func (m *mockSigner) Sign(ctx context.Context, req *service.SignRequest) (*service.SignResponse, error) {
	m.calls++
	if m.signFunc != nil {
		return m.signFunc(ctx, req)
	}
	return &service.SignResponse{
		Signature:  "0xsigned",
		GiveawayID: req.GiveawayID,
		FID:        req.FID,
		Address:    req.Address,
		ChainID:    8453,
	}, nil
}

type mockRecorder struct {
	recordFunc func(ctx context.Context, req *service.RecordRequest) (*models.Winner, error)
	calls      int
}

func (m *mockRecorder) RecordClaim(ctx context.Context, req *service.RecordRequest) (*models.Winner, error) {
	m.calls++
	if m.recordFunc != nil {
		return m.recordFunc(ctx, req)
	}
	return &models.Winner{
		ID:         1,
		GiveawayID: req.GiveawayID,
		FID:        req.FID,
		TxHash:     req.TxHash,
		Amount:     "5000",
		Username:   "@alice",
	}, nil
}

type mockGiveawayService struct {
	registerFunc func(ctx context.Context, req *service.RegisterRequest) (*models.Giveaway, error)
	getFunc      func(ctx context.Context, giveawayID string, fresh bool) (*service.GiveawayView, error)
	listFunc     func(ctx context.Context, creator, cursor string, limit int) ([]*models.Giveaway, error)
	latestFunc   func(ctx context.Context, limit int) ([]*models.Giveaway, error)
}

func (m *mockGiveawayService) Register(ctx context.Context, req *service.RegisterRequest) (*models.Giveaway, error) {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, req)
	}
	return &models.Giveaway{ID: req.GiveawayID, Creator: req.Creator}, nil
}

func (m *mockGiveawayService) Get(ctx context.Context, giveawayID string, fresh bool) (*service.GiveawayView, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, giveawayID, fresh)
	}
	return &service.GiveawayView{Giveaway: &models.Giveaway{ID: giveawayID}}, nil
}

func (m *mockGiveawayService) ListByCreator(ctx context.Context, creator, cursor string, limit int) ([]*models.Giveaway, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, creator, cursor, limit)
	}
	return nil, nil
}

func (m *mockGiveawayService) ListLatest(ctx context.Context, limit int) ([]*models.Giveaway, error) {
	if m.latestFunc != nil {
		return m.latestFunc(ctx, limit)
	}
	return nil, nil
}

type mockUserLookup struct {
	rawFunc func(ctx context.Context, fidsParam string) ([]byte, int, error)
}

func (m *mockUserLookup) UsersBulkRaw(ctx context.Context, fidsParam string) ([]byte, int, error) {
	if m.rawFunc != nil {
		return m.rawFunc(ctx, fidsParam)
	}
	return []byte(`{"users":[]}`), http.StatusOK, nil
}

type serverFixture struct {
	signer    *mockSigner
	recorder  *mockRecorder
	giveaways *mockGiveawayService
	users     *mockUserLookup
	server    *Server
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	f := &serverFixture{
		signer:    &mockSigner{},
		recorder:  &mockRecorder{},
		giveaways: &mockGiveawayService{},
		users:     &mockUserLookup{},
	}
	f.server = NewServer(
		&ServerConfig{
			Host:            "127.0.0.1",
			Port:            "0",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			IdleTimeout:     5 * time.Second,
			RateWindow:      time.Minute,
			ClaimPerWindow:  10,
			LookupPerWindow: 30,
		},
		f.signer, f.recorder, f.giveaways, f.users,
		logging.NewLogger(logging.LevelError, logging.FormatText),
	)
	return f
}

func (f *serverFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestServer_SignClaim(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, "POST", "/api/claim", service.SignRequest{
		GiveawayID: "a1b2c3d4-e5f6-4a0b-8c0d-0e1f2a3b4c5d",
		FID:        12345,
		Address:    "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp service.SignResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "0xsigned", resp.Signature)
	assert.Equal(t, uint64(8453), resp.ChainID)
}

func TestServer_SignClaim_BadBody(t *testing.T) {
	f := newServerFixture(t)

	req := httptest.NewRequest("POST", "/api/claim", bytes.NewBufferString("{not json"))
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_SignClaim_OwnershipDenied(t *testing.T) {
	f := newServerFixture(t)
	f.signer.signFunc = func(ctx context.Context, req *service.SignRequest) (*service.SignResponse, error) {
		return nil, apperrors.NewOwnershipVerificationError(req.FID)
	}

	rec := f.do(t, "POST", "/api/claim", service.SignRequest{GiveawayID: "1", FID: 1, Address: "0x8ba1f109551bD432803012645Ac136ddd64DBA72"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "OWNERSHIP_VERIFICATION_FAILED", body.Error.Code)
}

func TestServer_SignClaim_RateLimited(t *testing.T) {
	f := newServerFixture(t)

	body := service.SignRequest{GiveawayID: "1", FID: 1, Address: "0x8ba1f109551bD432803012645Ac136ddd64DBA72"}
	for i := 0; i < 10; i++ {
		rec := f.do(t, "POST", "/api/claim", body)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := f.do(t, "POST", "/api/claim", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 10, f.signer.calls, "the rejected request never reaches the signer")
}

func TestServer_RecordClaim(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, "POST", "/api/claim/record", service.RecordRequest{
		GiveawayID: "a1b2c3d4-e5f6-4a0b-8c0d-0e1f2a3b4c5d",
		FID:        12345,
		TxHash:     "0xababababababababababababababababababababababababababababababab",
		Amount:     "5000",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var winner models.Winner
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &winner))
	assert.Equal(t, uint64(12345), winner.FID)
}

func TestServer_RecordClaim_FinalErrorNotRetried(t *testing.T) {
	f := newServerFixture(t)
	f.recorder.recordFunc = func(ctx context.Context, req *service.RecordRequest) (*models.Winner, error) {
		return nil, apperrors.NewReceiptVerificationError("transaction failed")
	}

	rec := f.do(t, "POST", "/api/claim/record", service.RecordRequest{GiveawayID: "1", FID: 1})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 1, f.recorder.calls, "receipt failures are final, not retried")
}

func TestServer_RegisterGiveaway(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, "POST", "/api/giveaways", service.RegisterRequest{
		GiveawayID: "a1b2c3d4-e5f6-4a0b-8c0d-0e1f2a3b4c5d",
		Creator:    "0x1111111111111111111111111111111111111111",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestServer_GetGiveawayByID(t *testing.T) {
	f := newServerFixture(t)

	var gotFresh bool
	f.giveaways.getFunc = func(ctx context.Context, giveawayID string, fresh bool) (*service.GiveawayView, error) {
		gotFresh = fresh
		return &service.GiveawayView{Giveaway: &models.Giveaway{ID: giveawayID}}, nil
	}

	rec := f.do(t, "GET", "/api/giveaways?id=a1b2c3d4-e5f6-4a0b-8c0d-0e1f2a3b4c5d&fresh=1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gotFresh)
}

func TestServer_GetGiveaway_NotFound(t *testing.T) {
	f := newServerFixture(t)
	f.giveaways.getFunc = func(ctx context.Context, giveawayID string, fresh bool) (*service.GiveawayView, error) {
		return nil, apperrors.NewNotFoundError("giveaway", giveawayID)
	}

	rec := f.do(t, "GET", "/api/giveaways?id=a1b2c3d4-e5f6-4a0b-8c0d-0e1f2a3b4c5d", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ListByCreator_Cursor(t *testing.T) {
	f := newServerFixture(t)

	f.giveaways.listFunc = func(ctx context.Context, creator, cursor string, limit int) ([]*models.Giveaway, error) {
		out := make([]*models.Giveaway, limit)
		for i := range out {
			out[i] = &models.Giveaway{ID: "id", Creator: creator}
		}
		out[limit-1].ID = "last-id"
		return out, nil
	}

	rec := f.do(t, "GET", "/api/giveaways?creator=0x1111111111111111111111111111111111111111&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Giveaways, 2)
	assert.Equal(t, "last-id", resp.NextCursor, "a full page carries the next cursor")
}

func TestServer_ListByCreator_LimitClamped(t *testing.T) {
	f := newServerFixture(t)

	var gotLimit int
	f.giveaways.listFunc = func(ctx context.Context, creator, cursor string, limit int) ([]*models.Giveaway, error) {
		gotLimit = limit
		out := make([]*models.Giveaway, limit)
		for i := range out {
			out[i] = &models.Giveaway{ID: "id", Creator: creator}
		}
		out[limit-1].ID = "last-id"
		return out, nil
	}

	// An oversized limit is clamped to the page cap, so a full capped page
	// still carries the next cursor instead of silently ending pagination.
	rec := f.do(t, "GET", "/api/giveaways?creator=0x1111111111111111111111111111111111111111&limit=500", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, storage.MaxPageSize, gotLimit)

	var resp ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Giveaways, storage.MaxPageSize)
	assert.Equal(t, "last-id", resp.NextCursor)
}

func TestServer_ListLatest(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, "GET", "/api/giveaways", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_GetUsers(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, "GET", "/api/users?fids=1,2,3", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"users":[]}`, rec.Body.String())
}

func TestServer_GetUsers_Validation(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, "GET", "/api/users", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, "GET", "/api/users?fids=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_CORSPreflight(t *testing.T) {
	f := newServerFixture(t)

	req := httptest.NewRequest("OPTIONS", "/api/claim", nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
