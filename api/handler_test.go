package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concorda/agreement"
	"concorda/auth"
	"concorda/dashboard"
	"concorda/preference"
	"concorda/profile"
	"concorda/suggest"
	"concorda/tip"
)

const (
	testUser  = "user-1"
	testToken = "good-token"
	sigPNG    = "data:image/png;base64,aGVsbG8="
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct{}

func (fakeVerifier) VerifyToken(token string) (string, error) {
	if token != testToken {
		return "", auth.ErrInvalidToken
	}
	return testUser, nil
}

type fakeAccounts struct {
	registerErr error
}

func (f *fakeAccounts) Register(_ context.Context, req auth.RegisterRequest) (*auth.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &auth.User{ID: "new-user", Email: req.Email}, nil
}

func (f *fakeAccounts) Login(_ context.Context, req auth.LoginRequest) (auth.LoginResult, error) {
	if req.Password != "strongpassword" {
		return auth.LoginResult{}, auth.ErrInvalidCredentials
	}
	return auth.LoginResult{Token: testToken, ExpiresAt: time.Now().Add(time.Hour), User: auth.User{ID: testUser, Email: req.Email}}, nil
}

func (f *fakeAccounts) UpdatePassword(context.Context, string, auth.UpdatePasswordRequest) error {
	return nil
}

type fakeProfiles struct{}

func (fakeProfiles) Get(_ context.Context, userID string) (profile.Profile, error) {
	return profile.Profile{ID: userID, FullName: "Ana Souza"}, nil
}

func (fakeProfiles) Update(_ context.Context, userID string, req profile.UpdateRequest) (profile.Profile, error) {
	if req.FirstName == "" {
		return profile.Profile{}, profile.ErrNameRequired
	}
	return profile.Profile{ID: userID, FullName: req.FirstName + " " + req.LastName}, nil
}

// fakeAgreements backs both the CRUD and lifecycle surfaces.
type fakeAgreements struct {
	items     map[string]agreement.Agreement
	created   agreement.CreateParams
	filters   []agreement.ListFilters
	captured  agreement.SignatureMap
	extendErr error
	ratifyErr error
	listErr   error
}

func newFakeAgreements() *fakeAgreements {
	return &fakeAgreements{items: map[string]agreement.Agreement{
		"a1": {
			ID:           "a1",
			Title:        "Pia Limpa",
			Category:     agreement.CategoryHome,
			Tone:         agreement.ToneFun,
			Status:       agreement.StatusWaitingSignatures,
			Validity:     agreement.DefaultValidity,
			Participants: []agreement.Participant{{ID: "p1", Name: "Ana"}, {ID: "p2", Name: "Beto"}},
			Rules:        []agreement.Rule{{Text: "Lavar"}},
		},
	}}
}

func (f *fakeAgreements) Create(_ context.Context, ownerID string, params agreement.CreateParams) (agreement.Agreement, error) {
	f.created = params
	if params.Description == "" {
		return agreement.Agreement{}, fmt.Errorf("%w: description required", agreement.ErrValidation)
	}
	return agreement.Agreement{ID: "a2", CreatedBy: ownerID, Title: params.Title, Status: agreement.StatusWaitingSignatures}, nil
}

func (f *fakeAgreements) Get(_ context.Context, _, id string) (agreement.Agreement, error) {
	a, ok := f.items[id]
	if !ok {
		return agreement.Agreement{}, agreement.ErrNotFound
	}
	return a, nil
}

func (f *fakeAgreements) List(_ context.Context, filters agreement.ListFilters) ([]agreement.Agreement, int, error) {
	f.filters = append(f.filters, filters)
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	var out []agreement.Agreement
	for _, a := range f.items {
		out = append(out, a)
	}
	if filters.Page > 1 {
		return nil, len(out), nil
	}
	return out, len(out), nil
}

func (f *fakeAgreements) Load(ctx context.Context, ownerID, id string) (agreement.Agreement, error) {
	return f.Get(ctx, ownerID, id)
}

func (f *fakeAgreements) Ratify(ctx context.Context, ownerID, id string, sigs *agreement.Collector) (agreement.Agreement, error) {
	if f.ratifyErr != nil {
		return agreement.Agreement{}, f.ratifyErr
	}
	f.captured = sigs.Snapshot()
	if !sigs.Complete() {
		return agreement.Agreement{}, agreement.ErrIncompleteSignatures
	}
	a := f.items[id]
	a.Status = agreement.StatusActive
	a.Ratification = f.captured
	return a, nil
}

func (f *fakeAgreements) Complete(_ context.Context, _, id string, sigs *agreement.Collector) (agreement.Agreement, error) {
	f.captured = sigs.Snapshot()
	return agreement.Agreement{}, fmt.Errorf("%w: from %s", agreement.ErrInvalidTransition, f.items[id].Status)
}

func (f *fakeAgreements) Fail(ctx context.Context, ownerID, id string, sigs *agreement.Collector) (agreement.Agreement, error) {
	return f.Complete(ctx, ownerID, id, sigs)
}

func (f *fakeAgreements) Extend(_ context.Context, _, id, validity string) (agreement.Agreement, error) {
	if f.extendErr != nil {
		return agreement.Agreement{}, f.extendErr
	}
	if validity == "" {
		return agreement.Agreement{}, agreement.ErrEmptyValidity
	}
	a := f.items[id]
	a.Validity = validity
	a.NegotiationCount++
	return a, nil
}

type fakeSuggester struct{}

func (fakeSuggester) Rules(context.Context, string, agreement.Tone, agreement.Category) suggest.Suggestions {
	return suggest.Suggestions{Items: []string{"a", "b", "c"}}
}

func (fakeSuggester) Penalties(context.Context, string, agreement.Tone, agreement.Category) suggest.Suggestions {
	return suggest.Suggestions{Items: []string{"Erro ao conectar com IA."}, Degraded: true}
}

func (fakeSuggester) Title(context.Context, string, agreement.Tone, agreement.Category) string {
	return "Pacto da Pia"
}

func (fakeSuggester) DailyTip(context.Context) (tip.Draft, error) { return tip.Draft{}, nil }

type fakeTips struct {
	today tip.Tip
	err   error
}

func (f fakeTips) Today(context.Context) (tip.Tip, error) { return f.today, f.err }

func (f fakeTips) List(context.Context, int) ([]tip.Tip, error) { return []tip.Tip{f.today}, nil }

type fakePreferences struct{ favorites []string }

func (f *fakePreferences) Load(_ context.Context, userID string) (preference.Preferences, error) {
	return preference.Preferences{UserID: userID, FavoriteTipIDs: f.favorites}, nil
}

func (f *fakePreferences) Save(_ context.Context, userID string, p preference.Preferences) (preference.Preferences, error) {
	f.favorites = p.FavoriteTipIDs
	return preference.Preferences{UserID: userID, FavoriteTipIDs: f.favorites}, nil
}

func (f *fakePreferences) ToggleFavorite(ctx context.Context, userID, tipID string) (preference.Preferences, error) {
	return f.Save(ctx, userID, preference.Preferences{FavoriteTipIDs: append(f.favorites, tipID)})
}

type fakeDashboard struct{}

func (fakeDashboard) Summary(context.Context, string) (dashboard.Summary, error) {
	return dashboard.Summary{Active: 2, Completed: 1}, nil
}

type testServer struct {
	router     *gin.Engine
	agreements *fakeAgreements
	tips       *fakeTips
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	agreements := newFakeAgreements()
	tips := &fakeTips{today: tip.Tip{ID: "t1", Title: "Dica"}}
	h := NewHandler(Services{
		Accounts:    &fakeAccounts{},
		Profiles:    fakeProfiles{},
		Agreements:  agreements,
		Lifecycle:   agreements,
		Suggester:   fakeSuggester{},
		Tips:        tipsProxy{tips},
		Preferences: &fakePreferences{},
		Dashboard:   fakeDashboard{},
	}, zerolog.Nop())
	return &testServer{
		router:     NewRouter(h, fakeVerifier{}, "test", nil),
		agreements: agreements,
		tips:       tips,
	}
}

// tipsProxy lets tests swap the tip outcome after the router is built.
type tipsProxy struct{ f *fakeTips }

func (p tipsProxy) Today(ctx context.Context) (tip.Tip, error) { return p.f.Today(ctx) }

func (p tipsProxy) List(ctx context.Context, limit int) ([]tip.Tip, error) {
	return p.f.List(ctx, limit)
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthAndAuth(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	for name, header := range map[string]string{
		"missing": "",
		"invalid": "Bearer nope",
		"scheme":  "Basic " + testToken,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/agreements", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			s.router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAccountRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/register", auth.RegisterRequest{Email: "ana@example.com", Password: "strongpassword", FirstName: "Ana"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/login", auth.LoginRequest{Email: "ana@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/login", auth.LoginRequest{Email: "ana@example.com", Password: "strongpassword"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testToken, decode(t, rec)["token"])

	rec = s.do(t, http.MethodPut, "/profile", profile.UpdateRequest{LastName: "Souza"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ana", decode(t, rec)["first_name"])

	rec = s.do(t, http.MethodPut, "/auth/password", auth.UpdatePasswordRequest{Password: "newpassword"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRegisterDuplicate(t *testing.T) {
	accounts := &fakeAccounts{registerErr: auth.ErrDuplicateEmail}
	h := NewHandler(Services{Accounts: accounts}, zerolog.Nop())
	router := NewRouter(h, fakeVerifier{}, "test", nil)

	raw, _ := json.Marshal(auth.RegisterRequest{Email: "ana@example.com", Password: "strongpassword", FirstName: "Ana"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(raw)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAgreementRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/agreements", createAgreementRequest{
		Title: "Meu", Description: "Louça", Category: "Casa", Tone: "Divertido",
		Participants: []string{"Ana", "Beto"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, agreement.Category("Casa"), s.agreements.created.Category)

	rec = s.do(t, http.MethodPost, "/agreements", createAgreementRequest{Category: "Casa"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/agreements/a1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "waiting_signatures", body["status"])
	assert.Equal(t, []any{"Lavar"}, body["rules"])

	rec = s.do(t, http.MethodGet, "/agreements/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/agreements?status=active,failed&category=Casa&page=2&page_size=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	last := s.agreements.filters[len(s.agreements.filters)-1]
	assert.Equal(t, []agreement.Status{agreement.StatusActive, agreement.StatusFailed}, last.Statuses)
	assert.Equal(t, testUser, last.OwnerID)
	assert.Equal(t, 2, last.Page)
	assert.Equal(t, 5, last.PageSize)

	rec = s.do(t, http.MethodGet, "/agreements?page=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/templates?category=Casa", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 1)

	rec = s.do(t, http.MethodGet, "/templates?category=Trabalho", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignatureRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/agreements/a1/ratify", signaturesRequest{Signatures: map[string]string{"p1": sigPNG}})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "incomplete signatures")

	rec = s.do(t, http.MethodPost, "/agreements/a1/ratify", signaturesRequest{Signatures: map[string]string{"p1": sigPNG, "p9": sigPNG}})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown participant")

	rec = s.do(t, http.MethodPost, "/agreements/a1/ratify", signaturesRequest{Signatures: map[string]string{"p1": "not-an-image"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "invalid image")

	rec = s.do(t, http.MethodPost, "/agreements/a1/ratify", signaturesRequest{Signatures: map[string]string{"p1": sigPNG, "p2": sigPNG}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "active", decode(t, rec)["status"])
	assert.Len(t, s.agreements.captured, 2)

	s.agreements.ratifyErr = agreement.ErrTransitionInProgress
	rec = s.do(t, http.MethodPost, "/agreements/a1/ratify", signaturesRequest{Signatures: map[string]string{"p1": sigPNG, "p2": sigPNG}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/agreements/a1/complete", signaturesRequest{})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/agreements/missing/fail", signaturesRequest{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExtendRoute(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/agreements/a1/extend", extendRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/agreements/a1/extend", extendRequest{Validity: "1 Ano"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "1 Ano", body["validity"])
	assert.EqualValues(t, 1, body["negotiation_count"])

	s.agreements.extendErr = errors.New("connection reset")
	rec = s.do(t, http.MethodPost, "/agreements/a1/extend", extendRequest{Validity: "1 Ano"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "connection reset", decode(t, rec)["detail"])
}

func TestPartialCreateReportsOrphan(t *testing.T) {
	h := NewHandler(Services{}, zerolog.Nop())
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	h.handleError(c, &agreement.PartialCreateError{AgreementID: "orphan", Step: "rules", Err: errors.New("boom")})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "orphan", decode(t, rec)["agreement_id"])
}

func TestExports(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/agreements/a1/certificate.pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec = s.do(t, http.MethodGet, "/agreements/export.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	last := s.agreements.filters[len(s.agreements.filters)-1]
	assert.Equal(t, 1, last.Page)
}

func TestSuggestionRoutes(t *testing.T) {
	s := newTestServer(t)
	req := suggestionRequest{Description: "Louça", Tone: "Ácido", Category: "Casa"}

	rec := s.do(t, http.MethodPost, "/suggestions/rules", req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"a", "b", "c"}, decode(t, rec)["items"])

	rec = s.do(t, http.MethodPost, "/suggestions/penalties", req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["degraded"])

	rec = s.do(t, http.MethodPost, "/suggestions/title", req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Pacto da Pia", decode(t, rec)["title"])

	rec = s.do(t, http.MethodPost, "/suggestions/rules", suggestionRequest{Description: "x", Tone: "Bravo", Category: "Casa"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTipAndPreferenceRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/tips/today", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t1", decode(t, rec)["id"])

	s.tips.err = tip.ErrUnavailable
	rec = s.do(t, http.MethodGet, "/tips/today", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/tips?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/preferences/favorites/t1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"t1"}, decode(t, rec)["favorite_tip_ids"])

	rec = s.do(t, http.MethodGet, "/preferences", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testUser, decode(t, rec)["user_id"])

	rec = s.do(t, http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 2, body["active"])
	assert.Nil(t, body["tip"])
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("wrap: %w", agreement.ErrValidation): http.StatusBadRequest,
		agreement.ErrInvalidTransition:                 http.StatusConflict,
		auth.ErrUserNotFound:                           http.StatusNotFound,
		auth.ErrInvalidToken:                           http.StatusUnauthorized,
		agreement.ErrCorruptRecord:                     http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}
