package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gravadigital/wishdraw-api/internal/auth"
	"github.com/gravadigital/wishdraw-api/internal/config"
	"github.com/gravadigital/wishdraw-api/internal/domain/draw"
	"github.com/gravadigital/wishdraw-api/internal/services"
	"github.com/gravadigital/wishdraw-api/internal/storage/memory"
)

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	store  *memory.Store
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func newTestAPI(t *testing.T, mode draw.Mode) *testAPI {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.GinMode = gin.TestMode
	cfg.CORS.AllowOrigins = "*"

	store := memory.New()
	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	srv := New(cfg, Dependencies{
		Store:        store,
		Draws:        draw.NewService(store, mode),
		Participants: services.NewParticipantService(store, tokens, bcrypt.MinCost),
		Tokens:       tokens,
	})
	return &testAPI{t: t, router: srv.Router(), store: store}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// register signs up and logs in, returning a bearer token
func (a *testAPI) register(name string) string {
	a.t.Helper()
	email := strings.ToLower(name) + "@example.com"

	w := a.do(http.MethodPost, "/auth/signup", "", gin.H{"name": name, "email": email, "password": "hunter22"})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/auth/login", "", gin.H{"email": email, "password": "hunter22"})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())

	var session struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(decode(a.t, w).Data, &session))
	require.NotEmpty(a.t, session.Token)
	return session.Token
}

func (a *testAPI) submit(token, content string) {
	a.t.Helper()
	w := a.do(http.MethodPost, "/wishlist/submit", token, gin.H{"content": content})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
}

type pickedTarget struct {
	PickedTarget struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	} `json:"pickedTarget"`
}

func pickedFrom(t *testing.T, env envelope) pickedTarget {
	t.Helper()
	var p pickedTarget
	require.NoError(t, json.Unmarshal(env.Data, &p))
	return p
}

func TestPingAndHealth(t *testing.T) {
	api := newTestAPI(t, draw.ModeClosed)

	w := api.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "closed")
}

func TestHealthReportsUnavailableStore(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.GinMode = gin.TestMode
	cfg.CORS.AllowOrigins = "*"
	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	store := failingStore{Store: memory.New()}
	srv := New(cfg, Dependencies{
		Store:        store,
		Draws:        draw.NewService(store, draw.ModeClosed),
		Participants: services.NewParticipantService(store, tokens, bcrypt.MinCost),
		Tokens:       tokens,
	})

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

type failingStore struct {
	*memory.Store
}

func (failingStore) Health(context.Context) error { return errors.New("down") }

func TestSignupConflictsAndLoginFailures(t *testing.T) {
	api := newTestAPI(t, draw.ModeClosed)
	api.register("Alice")

	w := api.do(http.MethodPost, "/auth/signup", "", gin.H{"name": "Alice 2", "email": "alice@example.com", "password": "hunter22"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodPost, "/auth/signup", "", gin.H{"name": "Bob", "email": "bob@example.com", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, "/auth/login", "", gin.H{"email": "alice@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(http.MethodPost, "/auth/login", "", gin.H{"email": "alice@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t, draw.ModeClosed)

	w := api.do(http.MethodPost, "/wishlist/pick", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Access denied", decode(t, w).Error)

	w = api.do(http.MethodPost, "/wishlist/pick", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid token", decode(t, w).Error)
}

func TestMe(t *testing.T) {
	api := newTestAPI(t, draw.ModeClosed)
	token := api.register("Alice")

	w := api.do(http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var profile services.Profile
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &profile))
	assert.Equal(t, "Alice", profile.Name)
	assert.False(t, profile.HasWishlist)
	assert.False(t, profile.HasPicked)

	api.submit(token, "books")
	w = api.do(http.MethodGet, "/auth/me", token, nil)
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &profile))
	assert.True(t, profile.HasWishlist)
}

func TestSubmitValidationAndDuplicates(t *testing.T) {
	api := newTestAPI(t, draw.ModeClosed)
	token := api.register("Alice")

	w := api.do(http.MethodPost, "/wishlist/submit", token, gin.H{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, "/wishlist/submit", token, gin.H{"content": strings.Repeat("x", 2001)})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, "/wishlist/submit", token, gin.H{"wishlist": "legacy field"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodPost, "/wishlist/submit", token, gin.H{"content": "again"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Wishlist already submitted", decode(t, w).Error)
}

func TestSubmitForDeletedParticipant(t *testing.T) {
	api := newTestAPI(t, draw.ModeClosed)
	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	ghost, _, err := tokens.Issue(uuid.New(), "ghost@example.com")
	require.NoError(t, err)

	w := api.do(http.MethodPost, "/wishlist/submit", ghost, gin.H{"content": "boo"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodPost, "/wishlist/pick", ghost, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPickFlow(t *testing.T) {
	api := newTestAPI(t, draw.ModeClosed)
	alice := api.register("Alice")
	bob := api.register("Bob")
	carol := api.register("Carol")

	api.submit(alice, "X")
	api.submit(bob, "Y")

	w := api.do(http.MethodPost, "/wishlist/pick", alice, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := pickedFrom(t, decode(t, w))
	assert.Equal(t, "Bob", first.PickedTarget.Name)
	assert.Equal(t, "Y", first.PickedTarget.Content)

	w = api.do(http.MethodPost, "/wishlist/pick", alice, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	again := decode(t, w)
	assert.Equal(t, "You have already picked a wishlist", again.Error)
	assert.Equal(t, first, pickedFrom(t, again))

	w = api.do(http.MethodPost, "/wishlist/pick", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "X", pickedFrom(t, decode(t, w)).PickedTarget.Content)

	w = api.do(http.MethodPost, "/wishlist/pick", carol, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSelfPickRejected(t *testing.T) {
	api := newTestAPI(t, draw.ModeClosed)
	alice := api.register("Alice")
	bob := api.register("Bob")
	api.submit(alice, "X")
	api.submit(bob, "Y")

	w := api.do(http.MethodPost, "/wishlist/pick", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Bob can only draw Alice's list
	w = api.do(http.MethodPost, "/wishlist/pick", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)

	carol := api.register("Carol")
	api.submit(carol, "Z")
	w = api.do(http.MethodPost, "/wishlist/pick", carol, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "You cannot pick your own wishlist", decode(t, w).Error)
}

func TestSecretBoxListing(t *testing.T) {
	api := newTestAPI(t, draw.ModeClosed)
	alice := api.register("Alice")
	bob := api.register("Bob")
	api.submit(alice, "X")
	api.submit(bob, "Y")

	w := api.do(http.MethodGet, "/wishlist/pick", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listing struct {
		Entries []draw.EntryView `json:"entries"`
		Count   int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &listing))
	require.Equal(t, 1, listing.Count)
	assert.Equal(t, "********", listing.Entries[0].Name)
	assert.False(t, listing.Entries[0].Revealed)

	api.do(http.MethodPost, "/wishlist/pick", alice, nil)

	w = api.do(http.MethodGet, "/wishlist/pick", alice, nil)
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &listing))
	require.Equal(t, 1, listing.Count)
	assert.Equal(t, "Bob", listing.Entries[0].Name)
	assert.Equal(t, "Y", listing.Entries[0].Content)
	assert.True(t, listing.Entries[0].Revealed)
}

func TestExport(t *testing.T) {
	api := newTestAPI(t, draw.ModeClosed)
	alice := api.register("Alice")
	bob := api.register("Bob")
	api.submit(bob, "socks")

	w := api.do(http.MethodGet, "/wishlist/pick/export", alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodPost, "/wishlist/pick", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodGet, "/wishlist/pick/export", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Name: Bob\nWishlist: socks\n", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Bob-wishlist.txt")
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
}

func TestStats(t *testing.T) {
	api := newTestAPI(t, draw.ModeOpen)
	alice := api.register("Alice")
	bob := api.register("Bob")
	api.submit(bob, "Y")
	api.do(http.MethodPost, "/wishlist/pick", alice, nil)

	w := api.do(http.MethodGet, "/wishlist/stats", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats draw.Stats
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &stats))
	assert.Equal(t, draw.ModeOpen, stats.Mode)
	assert.Equal(t, int64(2), stats.Participants)
	assert.Equal(t, int64(1), stats.ParticipantsDrawn)
	assert.Equal(t, int64(1), stats.Wishlists)
	assert.Equal(t, int64(0), stats.WishlistsClaimed)
}

func TestConcurrentPickRequests(t *testing.T) {
	api := newTestAPI(t, draw.ModeClosed)
	alice := api.register("Alice")
	for _, name := range []string{"Bob", "Carol", "Dave"} {
		api.submit(api.register(name), name+"'s list")
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, already int
	targets := map[string]bool{}

	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/wishlist/pick", nil)
			req.Header.Set("Authorization", "Bearer "+alice)
			w := httptest.NewRecorder()
			api.router.ServeHTTP(w, req)

			var env envelope
			if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
				return
			}
			var p pickedTarget
			_ = json.Unmarshal(env.Data, &p)

			mu.Lock()
			defer mu.Unlock()
			switch w.Code {
			case http.StatusOK:
				ok++
			case http.StatusBadRequest:
				already++
			}
			targets[p.PickedTarget.Name] = true
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 9, already)
	assert.Len(t, targets, 1, "every response must name the same target")

	claimed, err := api.store.Wishlists().CountClaimed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), claimed)
}

func TestStopRacingStart(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.GinMode = gin.TestMode
	cfg.Server.Port = "0"
	cfg.CORS.AllowOrigins = "*"

	store := memory.New()
	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	srv := New(cfg, Dependencies{
		Store:        store,
		Draws:        draw.NewService(store, draw.ModeClosed),
		Participants: services.NewParticipantService(store, tokens, bcrypt.MinCost),
		Tokens:       tokens,
	})

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}
