package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/race-trading-pipeline/internal/notify"
	"github.com/radieske/race-trading-pipeline/internal/race"
	"github.com/radieske/race-trading-pipeline/internal/store"
)

var jst = time.FixedZone("JST", 9*3600)

func bet(day, venue, raceNo int, combo string, created time.Time) race.Bet {
	deadline := time.Date(2024, 3, day, 15, 0, 0, 0, jst)
	return race.Bet{
		Race:        race.NewID(deadline, venue, raceNo),
		Combination: race.Combination(combo),
		Stake:       100,
		Price:       7.4,
		EVPercent:   130,
		Status:      race.BetPending,
		CreatedAt:   created,
	}
}

// seed grava três apostas em dois dias: 7/3 ganha 740 e perde 100, 8/3 fica pending
func seed(t *testing.T) (*store.Memory, time.Time) {
	t.Helper()
	ctx := context.Background()
	m := store.NewMemory()
	now := time.Date(2024, 3, 8, 18, 0, 0, 0, jst)

	won := bet(7, 4, 7, "1-3-5", time.Date(2024, 3, 7, 14, 58, 0, 0, jst))
	lost := bet(7, 4, 7, "2-1-3", time.Date(2024, 3, 7, 14, 58, 0, 0, jst))
	open := bet(8, 1, 2, "3-2-1", time.Date(2024, 3, 8, 14, 58, 0, 0, jst))
	old := bet(1, 5, 1, "1-2-3", now.Add(-BalanceWindow-time.Hour))
	require.NoError(t, m.UpsertBets(ctx, []race.Bet{won, lost, open, old}))

	settled := now
	won.Status, won.Return, won.SettledAt = race.BetWon, 740, &settled
	lost.Status, lost.SettledAt = race.BetLost, &settled
	_, err := m.SettleBets(ctx, []race.Bet{won, lost})
	require.NoError(t, err)
	return m, now
}

func TestBalanceHistoryAccumulatesByRaceDate(t *testing.T) {
	m, now := seed(t)

	history, err := BalanceHistory(context.Background(), m, now)
	require.NoError(t, err)

	assert.Equal(t, []Point{
		{Date: "2024-03-07", Balance: 540},
		{Date: "2024-03-08", Balance: 440},
	}, history)
}

func TestBalanceHistoryEmpty(t *testing.T) {
	history, err := BalanceHistory(context.Background(), store.NewMemory(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRecentBetsNewestFirst(t *testing.T) {
	m, _ := seed(t)

	bets, err := RecentBets(context.Background(), m)
	require.NoError(t, err)
	require.Len(t, bets, 4)

	assert.Equal(t, "20240308-1-2-3-2-1", bets[0].Key)
	assert.Equal(t, "2024-03-08", bets[0].Date)
	assert.Equal(t, "pending", bets[0].Status)
	for i := 1; i < len(bets); i++ {
		assert.False(t, bets[i].CreatedAt.After(bets[i-1].CreatedAt))
	}
}

type failingReader struct{}

func (failingReader) BetsSince(context.Context, time.Time) ([]race.Bet, error) {
	return nil, errors.New("db down")
}

func (failingReader) RecentBets(context.Context, int) ([]race.Bet, error) {
	return nil, errors.New("db down")
}

func newAPI(r BetReader, now time.Time) *API {
	return &API{
		Bets:    r,
		Hub:     NewHub(func(*http.Request) bool { return true }),
		Origins: []string{"*"},
		Log:     zap.NewNop(),
		now:     func() time.Time { return now },
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestAPIBalance(t *testing.T) {
	m, now := seed(t)
	rec := get(t, newAPI(m, now).Router(), "/api/dashboard/balance")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"history":[{"date":"2024-03-07","balance":540},{"date":"2024-03-08","balance":440}]}`, rec.Body.String())
}

func TestAPIBets(t *testing.T) {
	m, now := seed(t)
	rec := get(t, newAPI(m, now).Router(), "/api/dashboard/bets")

	require.Equal(t, http.StatusOK, rec.Code)
	var body betsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Bets, 4)
}

func TestAPIStoreFailure(t *testing.T) {
	api := newAPI(failingReader{}, time.Now())
	assert.Equal(t, http.StatusInternalServerError, get(t, api.Router(), "/api/dashboard/balance").Code)
	assert.Equal(t, http.StatusInternalServerError, get(t, api.Router(), "/api/dashboard/bets").Code)
}

func TestAPIServesWhenCacheIsDown(t *testing.T) {
	m, now := seed(t)
	api := newAPI(m, now)
	api.Cache = NewCache(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1}))
	api.CacheTTL = time.Second

	rec := get(t, api.Router(), "/api/dashboard/balance")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPICORSPreflight(t *testing.T) {
	m, now := seed(t)
	api := newAPI(m, now)
	api.Origins = []string{"http://localhost:5173"}

	req := httptest.NewRequest(http.MethodOptions, "/api/dashboard/bets", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// roundTrip garante que o servidor já processou as mensagens anteriores
func roundTrip(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "ping"}))
	var pong map[string]string
	require.NoError(t, conn.ReadJSON(&pong))
	require.Equal(t, "pong", pong["type"])
}

func TestHubBroadcastsBetUpdates(t *testing.T) {
	api := newAPI(store.NewMemory(), time.Now())
	srv := httptest.NewServer(api.Router())
	defer srv.Close()

	all := dial(t, srv)
	filtered := dial(t, srv)
	require.NoError(t, filtered.WriteJSON(ClientMsg{Type: "subscribe", RaceKey: "20240307-4-7"}))
	roundTrip(t, all)
	roundTrip(t, filtered)
	assert.Equal(t, 2, api.Hub.Clients())

	other := bet(7, 1, 2, "3-2-1", time.Now())
	api.Hub.Broadcast(notify.BetUpdate{Kind: notify.KindPlaced, RaceKey: other.Race.Key(), Bet: other})
	mine := bet(7, 4, 7, "1-3-5", time.Now())
	api.Hub.Broadcast(notify.BetUpdate{Kind: notify.KindSettled, RaceKey: mine.Race.Key(), Bet: mine})

	var got notify.BetUpdate
	require.NoError(t, all.ReadJSON(&got))
	assert.Equal(t, "20240307-1-2", got.RaceKey)
	require.NoError(t, all.ReadJSON(&got))
	assert.Equal(t, "20240307-4-7", got.RaceKey)

	// o cliente filtrado só recebe a corrida assinada
	require.NoError(t, filtered.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, filtered.ReadJSON(&got))
	assert.Equal(t, notify.KindSettled, got.Kind)
	assert.Equal(t, race.Combination("1-3-5"), got.Bet.Combination)
}
