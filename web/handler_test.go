package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripsplit/auth"
	"tripsplit/db/mem"
	"tripsplit/mq/goch"
	"tripsplit/trip"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	tripDB := mem.NewInMemoryTripDBWrapper()
	userDB := mem.NewInMemoryUserDBWrapper()
	mqWrapper := goch.NewGoChanTripMessageQueueWrapper()
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)

	h := NewHandler(
		trip.NewService(tripDB, mqWrapper),
		mqWrapper,
		tripDB,
		userDB,
		auth.NewPasswordAuthenticator(userDB),
		jwtManager,
	)

	r := gin.New()
	registerRoutes(r, h, jwtManager)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func registerUser(t *testing.T, r *gin.Engine, username, email string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{
		"username": username,
		"email":    email,
		"password": "correct horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeBody(t, w)["token"].(string)
}

func createTrip(t *testing.T, r *gin.Engine, token string) map[string]any {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/trips", token, gin.H{
		"title": "Ski weekend",
		"date":  "2026-03-14",
		"items": []gin.H{{"name": "Cabin", "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeBody(t, w)
}

func TestRegisterAndLogin(t *testing.T) {
	r := newTestRouter()

	token := registerUser(t, r, "alice", "alice@example.com")
	assert.NotEmpty(t, token)

	// Duplicate email is a conflict.
	w := doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{
		"username": "alice2",
		"email":    "alice@example.com",
		"password": "correct horse",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "correct horse",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decodeBody(t, w)["token"])

	w = doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequired(t *testing.T) {
	r := newTestRouter()

	w := doJSON(t, r, http.MethodGet, "/home", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodGet, "/home", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateAndViewTrip(t *testing.T) {
	r := newTestRouter()
	token := registerUser(t, r, "alice", "alice@example.com")

	created := createTrip(t, r, token)
	assert.Equal(t, "Ski weekend", created["title"])
	assert.Len(t, created["code"], 10)
	tripID := created["id"].(string)

	w := doJSON(t, r, http.MethodGet, "/trips/"+tripID, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	detail := decodeBody(t, w)
	assert.Len(t, detail["items"], 1)
	assert.Len(t, detail["members"], 1)
	caller := detail["caller"].(map[string]any)
	assert.Equal(t, true, caller["is_leader"])

	// Bad date format is rejected.
	w = doJSON(t, r, http.MethodPost, "/trips", token, gin.H{
		"title": "Bad date", "date": "14.03.2026",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJoinFlow(t *testing.T) {
	r := newTestRouter()
	leaderToken := registerUser(t, r, "alice", "alice@example.com")
	friendToken := registerUser(t, r, "bob", "bob@example.com")

	created := createTrip(t, r, leaderToken)
	code := created["code"].(string)
	tripID := created["id"].(string)

	// Preview by code before joining.
	w := doJSON(t, r, http.MethodGet, "/codes/"+code, friendToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, tripID, decodeBody(t, w)["id"])

	// Outsiders cannot see the details page.
	w = doJSON(t, r, http.MethodGet, "/trips/"+tripID, friendToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPost, "/join", friendToken, gin.H{"code": code})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/join", friendToken, gin.H{"code": code})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_member", decodeBody(t, w)["kind"])

	w = doJSON(t, r, http.MethodPost, "/join", friendToken, gin.H{"code": "0000000000"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/trips/"+tripID, friendToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPayAndEndFlow(t *testing.T) {
	r := newTestRouter()
	leaderToken := registerUser(t, r, "alice", "alice@example.com")
	friendToken := registerUser(t, r, "bob", "bob@example.com")

	created := createTrip(t, r, leaderToken)
	code := created["code"].(string)
	tripID := created["id"].(string)
	w := doJSON(t, r, http.MethodPost, "/join", friendToken, gin.H{"code": code})
	require.Equal(t, http.StatusOK, w.Code)

	// Ending with an unpaid item is a conflict.
	w = doJSON(t, r, http.MethodPost, "/trips/"+tripID+"/end", leaderToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "incomplete", decodeBody(t, w)["kind"])

	// Find the item and pay it.
	w = doJSON(t, r, http.MethodGet, "/trips/"+tripID, leaderToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decodeBody(t, w)["items"].([]any)
	itemID := items[0].(map[string]any)["id"].(string)

	w = doJSON(t, r, http.MethodPost, "/items/"+itemID+"/pay", friendToken, gin.H{"amount": "not a number"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/items/"+itemID+"/pay", friendToken, gin.H{"amount": "80"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	paid := decodeBody(t, w)
	assert.Equal(t, true, paid["is_paid"])
	assert.Equal(t, "80", paid["amount_paid"])

	w = doJSON(t, r, http.MethodPost, "/items/"+itemID+"/pay", friendToken, gin.H{"amount": "80"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_paid", decodeBody(t, w)["kind"])

	// Non-leader end is a no-op, leader end flips the flag.
	w = doJSON(t, r, http.MethodPost, "/trips/"+tripID+"/end", friendToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["ended"])

	w = doJSON(t, r, http.MethodPost, "/trips/"+tripID+"/end", leaderToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["ended"])

	// Confirm payments on the ended trip, then delete it.
	w = doJSON(t, r, http.MethodPost, "/trips/"+tripID+"/confirm", friendToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/trips/"+tripID, leaderToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "one confirmation still missing")

	w = doJSON(t, r, http.MethodPost, "/trips/"+tripID+"/confirm", leaderToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodDelete, "/trips/"+tripID, leaderToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/trips/"+tripID, leaderToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestItemEndpoints(t *testing.T) {
	r := newTestRouter()
	token := registerUser(t, r, "alice", "alice@example.com")
	created := createTrip(t, r, token)
	tripID := created["id"].(string)

	w := doJSON(t, r, http.MethodPost, "/trips/"+tripID+"/items", token, gin.H{
		"name": "Lift tickets", "quantity": 4,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	itemID := decodeBody(t, w)["id"].(string)

	w = doJSON(t, r, http.MethodDelete, "/items/"+itemID, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/items/"+itemID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/items/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHomeEndpoint(t *testing.T) {
	r := newTestRouter()
	token := registerUser(t, r, "alice", "alice@example.com")

	w := doJSON(t, r, http.MethodGet, "/home", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	home := decodeBody(t, w)
	assert.Equal(t, false, home["has_created"])

	createTrip(t, r, token)

	w = doJSON(t, r, http.MethodGet, "/home", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	home = decodeBody(t, w)
	assert.Equal(t, true, home["has_created"])
	assert.Len(t, home["trips"], 1)
}

func TestProfileAndBankDetails(t *testing.T) {
	r := newTestRouter()
	leaderToken := registerUser(t, r, "alice", "alice@example.com")
	friendToken := registerUser(t, r, "bob", "bob@example.com")
	strangerToken := registerUser(t, r, "carol", "carol@example.com")

	w := doJSON(t, r, http.MethodPut, "/me/profile", leaderToken, gin.H{
		"iban": "DE89370400440532013000", "bank_name": "Test Bank",
	})
	require.Equal(t, http.StatusOK, w.Code)
	leaderID := decodeBody(t, w)["user_id"].(string)

	w = doJSON(t, r, http.MethodGet, "/me/profile", leaderToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DE89370400440532013000", decodeBody(t, w)["iban"])

	// Bank details are visible to trip mates only.
	created := createTrip(t, r, leaderToken)
	w = doJSON(t, r, http.MethodPost, "/join", friendToken, gin.H{"code": created["code"]})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/users/"+leaderID+"/bank", friendToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Test Bank", decodeBody(t, w)["bank_name"])

	w = doJSON(t, r, http.MethodGet, "/users/"+leaderID+"/bank", strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodGet, "/users/"+leaderID+"/bank", leaderToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealth(t *testing.T) {
	r := newTestRouter()
	w := doJSON(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
