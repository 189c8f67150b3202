package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/wastemarket-backend/internal/config"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/entity"
	"github.com/ignatzorin/wastemarket-backend/internal/http/handlers"
	"github.com/ignatzorin/wastemarket-backend/internal/http/middleware"
	"github.com/ignatzorin/wastemarket-backend/internal/infrastructure/lock"
	"github.com/ignatzorin/wastemarket-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/wastemarket-backend/internal/infrastructure/messaging"
	"github.com/ignatzorin/wastemarket-backend/internal/interface/http/handler"
	"github.com/ignatzorin/wastemarket-backend/internal/service"
	"github.com/ignatzorin/wastemarket-backend/internal/usecase/bid"
	"github.com/ignatzorin/wastemarket-backend/internal/usecase/listing"
	"github.com/ignatzorin/wastemarket-backend/internal/ws"
)

type app struct {
	server *httptest.Server
	tokens *service.TokenManager
	store  *memory.Store
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newApp(t *testing.T, rateLimit int64) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Env:             "test",
		AllowedOrigins:  []string{"*"},
		RateLimitLimit:  rateLimit,
		RateLimitPeriod: time.Minute,
	}

	ctx, cancel := context.WithCancel(context.Background())
	hub := ws.NewHub()
	go hub.Run(ctx)
	t.Cleanup(cancel)

	store := memory.NewStore()
	listings, bids := store.Listings(), store.Bids()
	publisher := ws.NewPublisher(hub)
	guard := listing.NewGuard(lock.NewKeyedMutex(), store, listings)
	tokens := service.NewTokenManager("router-test-secret", time.Hour)

	limitStore, err := middleware.NewRateLimitStore(nil)
	require.NoError(t, err)

	h := Handlers{
		Listing: handler.NewListingHandler(
			listing.NewCreateListingUseCase(listings, publisher),
			listing.NewPublishListingUseCase(guard, listings, publisher),
			listing.NewGetListingUseCase(listings),
			listing.NewCloseBiddingUseCase(guard, listings, publisher),
		),
		Bid: handler.NewBidHandler(
			bid.NewPlaceBidUseCase(guard, listings, bids, store, publisher),
			bid.NewUpdateBidUseCase(guard, listings, bids, publisher),
			bid.NewWithdrawBidUseCase(guard, listings, bids, publisher),
			bid.NewAcceptBidUseCase(guard, listings, bids, publisher, messaging.LogSettlement{}),
			bid.NewGetListingBidsUseCase(listings, bids),
			bid.NewGetMyBidsUseCase(bids),
		),
		WS: handlers.NewWSHandler(hub, tokens, cfg.AllowedOrigins),
		Health: handlers.NewHealthHandler(map[string]handlers.HealthCheck{
			"storage": func(context.Context) error { return nil },
		}),
	}

	server := httptest.NewServer(SetupRouter(cfg, h, tokens, limitStore))
	t.Cleanup(server.Close)

	return &app{server: server, tokens: tokens, store: store}
}

func (a *app) token(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	token, _, err := a.tokens.GenerateAccess(userID, role)
	require.NoError(t, err)
	return token
}

func (a *app) call(t *testing.T, method, path, token string, body any) (int, apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type listingBody struct {
	ID                string  `json:"id"`
	Status            string  `json:"status"`
	CurrentHighestBid string  `json:"current_highest_bid"`
	TotalBids         int     `json:"total_bids"`
	AcceptedBidID     *string `json:"accepted_bid_id"`
}

type bidBody struct {
	ID           string   `json:"id"`
	Amount       string   `json:"amount"`
	Status       string   `json:"status"`
	IsHighestBid bool     `json:"is_highest_bid"`
	DistanceKm   *float64 `json:"distance_km"`
	BidderRating float64  `json:"bidder_rating"`
}

func TestHealth(t *testing.T) {
	a := newApp(t, 100)

	resp, err := http.Get(a.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body handlers.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Checks["storage"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	a := newApp(t, 100)

	status, body := a.call(t, http.MethodGet, "/api/bids/my", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)

	status, _ = a.call(t, http.MethodGet, "/api/bids/my", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestInvalidPathIDs(t *testing.T) {
	a := newApp(t, 100)
	token := a.token(t, uuid.New(), service.RoleCollector)

	status, body := a.call(t, http.MethodPost, "/api/listings/not-a-uuid/bids", token, map[string]any{"amount": 10})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "BAD_REQUEST", body.Error.Code)

	status, _ = a.call(t, http.MethodPost, "/api/bids/42/withdraw", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAuctionFlow(t *testing.T) {
	a := newApp(t, 100)
	seller, collectorA, collectorB := uuid.New(), uuid.New(), uuid.New()
	sellerToken := a.token(t, seller, service.RoleSeller)
	tokenA := a.token(t, collectorA, service.RoleCollector)
	tokenB := a.token(t, collectorB, service.RoleCollector)
	a.store.SetCollector(collectorA, entity.CollectorSnapshot{Rating: 4.5, CompletedJobs: 9})

	status, body := a.call(t, http.MethodPost, "/api/listings", sellerToken, map[string]any{
		"title":           "Office paper",
		"final_weight":    "250",
		"final_materials": []string{"paper"},
		"final_value":     "1200",
		"location":        map[string]float64{"lat": 55.7558, "lng": 37.6173},
		"publish":         true,
	})
	require.Equal(t, http.StatusCreated, status)
	created := decode[listingBody](t, body.Data)
	assert.Equal(t, "active", created.Status)

	status, body = a.call(t, http.MethodPost, "/api/listings/"+created.ID+"/bids", tokenA, map[string]any{
		"amount":            "100",
		"message":           "can pick up tomorrow",
		"pickup_date":       "2030-01-15",
		"has_own_transport": true,
		"location":          map[string]float64{"lat": 59.9343, "lng": 30.3351},
	})
	require.Equal(t, http.StatusCreated, status)
	first := decode[bidBody](t, body.Data)
	assert.True(t, first.IsHighestBid)
	assert.Equal(t, 4.5, first.BidderRating)
	require.NotNil(t, first.DistanceKm)
	assert.InDelta(t, 634, *first.DistanceKm, 5)

	status, body = a.call(t, http.MethodPost, "/api/listings/"+created.ID+"/bids", tokenB, map[string]any{"amount": "120"})
	require.Equal(t, http.StatusCreated, status)
	second := decode[bidBody](t, body.Data)
	assert.True(t, second.IsHighestBid)
	assert.Nil(t, second.DistanceKm)

	status, body = a.call(t, http.MethodPost, "/api/listings/"+created.ID+"/bids", tokenA, map[string]any{"amount": "130"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", body.Error.Code)

	status, body = a.call(t, http.MethodGet, "/api/listings/"+created.ID+"/bids", sellerToken, nil)
	require.Equal(t, http.StatusOK, status)
	ledger := decode[[]bidBody](t, body.Data)
	require.Len(t, ledger, 2)
	assert.Equal(t, second.ID, ledger[0].ID)
	assert.False(t, ledger[1].IsHighestBid)

	status, body = a.call(t, http.MethodPost, "/api/bids/"+first.ID+"/accept", tokenB, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = a.call(t, http.MethodPost, "/api/bids/"+first.ID+"/accept", sellerToken, nil)
	require.Equal(t, http.StatusOK, status)
	accepted := decode[struct {
		Bid     bidBody     `json:"bid"`
		Listing listingBody `json:"listing"`
	}](t, body.Data)
	assert.Equal(t, "accepted", accepted.Bid.Status)
	assert.Equal(t, "bidding_closed", accepted.Listing.Status)
	require.NotNil(t, accepted.Listing.AcceptedBidID)
	assert.Equal(t, first.ID, *accepted.Listing.AcceptedBidID)

	status, body = a.call(t, http.MethodGet, "/api/bids/my?status=rejected", tokenB, nil)
	require.Equal(t, http.StatusOK, status)
	mine := decode[[]struct {
		bidBody
		Listing struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"listing"`
	}](t, body.Data)
	require.Len(t, mine, 1)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, "bidding_closed", mine[0].Listing.Status)

	status, body = a.call(t, http.MethodPost, "/api/listings/"+created.ID+"/bids", a.token(t, uuid.New(), service.RoleCollector), map[string]any{"amount": "500"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_STATE", body.Error.Code)
	assert.Equal(t, "bidding has ended", body.Error.Message)
}

func TestPlaceBidValidation(t *testing.T) {
	a := newApp(t, 100)
	sellerToken := a.token(t, uuid.New(), service.RoleSeller)
	token := a.token(t, uuid.New(), service.RoleCollector)

	status, body := a.call(t, http.MethodPost, "/api/listings", sellerToken, map[string]any{"title": "Tyres", "publish": true})
	require.Equal(t, http.StatusCreated, status)
	l := decode[listingBody](t, body.Data)

	tests := []struct {
		name string
		body map[string]any
		code string
	}{
		{name: "missing amount", body: map[string]any{}, code: "VALIDATION_ERROR"},
		{name: "negative amount", body: map[string]any{"amount": "-1"}, code: "VALIDATION_ERROR"},
		{name: "fraction of a cent", body: map[string]any{"amount": "100.004"}, code: "VALIDATION_ERROR"},
		{name: "amount above column maximum", body: map[string]any{"amount": "1000000000000000"}, code: "VALIDATION_ERROR"},
		{name: "bad pickup date", body: map[string]any{"amount": "1", "pickup_date": "15.01.2030"}, code: "VALIDATION_ERROR"},
		{name: "latitude out of range", body: map[string]any{"amount": "1", "location": map[string]float64{"lat": 120, "lng": 0}}, code: "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := a.call(t, http.MethodPost, "/api/listings/"+l.ID+"/bids", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestBidEndpointsAreRateLimited(t *testing.T) {
	a := newApp(t, 2)
	sellerToken := a.token(t, uuid.New(), service.RoleSeller)
	token := a.token(t, uuid.New(), service.RoleCollector)

	status, body := a.call(t, http.MethodPost, "/api/listings", sellerToken, map[string]any{"title": "Batteries", "publish": true})
	require.Equal(t, http.StatusCreated, status)
	l := decode[listingBody](t, body.Data)

	status, body = a.call(t, http.MethodPost, "/api/listings/"+l.ID+"/bids", token, map[string]any{"amount": "10"})
	require.Equal(t, http.StatusCreated, status)
	placed := decode[bidBody](t, body.Data)

	status, _ = a.call(t, http.MethodPut, "/api/bids/"+placed.ID, token, map[string]any{"amount": "11"})
	require.Equal(t, http.StatusOK, status)

	status, body = a.call(t, http.MethodPut, "/api/bids/"+placed.ID, token, map[string]any{"amount": "12"})
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "TOO_MANY_REQUESTS", body.Error.Code)

	// Чтение ленты ставок не лимитируется.
	status, _ = a.call(t, http.MethodGet, "/api/listings/"+l.ID+"/bids", token, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestWebSocketDeliversBidToSeller(t *testing.T) {
	a := newApp(t, 100)
	seller := uuid.New()
	sellerToken := a.token(t, seller, service.RoleSeller)

	status, body := a.call(t, http.MethodPost, "/api/listings", sellerToken, map[string]any{"title": "Aluminium cans", "publish": true})
	require.Equal(t, http.StatusCreated, status)
	l := decode[listingBody](t, body.Data)

	wsURL := "ws" + strings.TrimPrefix(a.server.URL, "http") + "/api/ws?token=" + sellerToken
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "seller:join", "data": map[string]string{"seller_id": seller.String()}}))
	awaitFrame(t, conn, "room:joined")

	status, _ = a.call(t, http.MethodPost, "/api/listings/"+l.ID+"/bids", a.token(t, uuid.New(), service.RoleCollector), map[string]any{"amount": "42"})
	require.Equal(t, http.StatusCreated, status)

	frame := awaitFrame(t, conn, "bid:new")
	payload := decode[struct {
		ListingID string  `json:"listing_id"`
		Bid       bidBody `json:"bid"`
	}](t, frame)
	assert.Equal(t, l.ID, payload.ListingID)
	assert.Equal(t, "42", payload.Bid.Amount)
}

func TestWebSocketRejectsMissingToken(t *testing.T) {
	a := newApp(t, 100)

	wsURL := "ws" + strings.TrimPrefix(a.server.URL, "http") + "/api/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// awaitFrame читает кадры, пока не встретит нужный тип.
func awaitFrame(t *testing.T, conn *websocket.Conn, want string) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var frame struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == want {
			return frame.Data
		}
	}
}
