package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/race-trading-pipeline/internal/race"
)

var jst = time.FixedZone("JST", 9*3600)

// upstream sobe um servidor com uma página por path; paths ausentes => 404
func upstream(t *testing.T, pages map[string]string) (*Client, *[]*http.Request) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []*http.Request
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r)
		mu.Unlock()
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL, 2*time.Second, jst, zap.NewNop()), &seen
}

func testID() race.ID {
	return race.NewID(time.Date(2024, 3, 7, 15, 40, 0, 0, jst), 4, 7)
}

func value(t *testing.T, f race.Features, key string) float64 {
	t.Helper()
	v, ok := f[key]
	require.True(t, ok, "missing key %s", key)
	require.NotNil(t, v, "nil value for %s", key)
	return *v
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		in           string
		zeroAsAbsent bool
		want         float64
		wantErr      bool
	}{
		{"52.0kg", false, 52.0, false},
		{"3m", false, 3, false},
		{"5cm", false, 5, false},
		{"15.0℃", false, 15.0, false},
		{"45.5%", false, 45.5, false},
		{"６．７５", false, 6.75, false},
		{"0.00", false, 0, false},
		{"0.00", true, 0, true},
		{"-", false, 0, true},
		{"", false, 0, true},
		{"abc", false, 0, true},
		{"NaN", false, 0, true},
		{"Inf", false, 0, true},
		{"-Infinity", false, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseFloat(tt.in, tt.zeroAsAbsent)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestStrippedLines(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<table><tr><td> F0 <br>L1<br>  <span>0.15</span> </td></tr></table>`))
	require.NoError(t, err)
	assert.Equal(t, []string{"F0", "L1", "0.15"}, strippedLines(doc.Find("td")))
}

func TestFetchCard(t *testing.T) {
	c, seen := upstream(t, map[string]string{"/owpc/pc/race/index": cardHTML})

	now := time.Date(2024, 3, 7, 1, 0, 0, 0, time.UTC) // 10:00 JST
	card, err := c.FetchCard(context.Background(), now)
	require.NoError(t, err)

	require.Len(t, card.Races, 3)
	assert.Equal(t, race.Scheduled{VenueID: 4, RaceNumber: 1, Deadline: time.Date(2024, 3, 7, 10, 30, 0, 0, jst)}, card.Races[0])
	assert.Equal(t, 2, card.Races[1].RaceNumber)
	assert.Equal(t, 12, card.Races[2].VenueID)
	assert.Equal(t, time.Date(2024, 3, 7, 20, 41, 0, 0, jst), card.Races[2].Deadline)

	// o local sem marcador é pulado sem derrubar os outros
	require.Len(t, card.Issues, 1)
	assert.Equal(t, "venue[1]", card.Issues[0].Field)

	require.Len(t, *seen, 1)
	assert.Contains(t, (*seen)[0].Header.Get("User-Agent"), "Mozilla/5.0")
}

func TestFetchCardNoData(t *testing.T) {
	c, _ := upstream(t, map[string]string{"/owpc/pc/race/index": noDataHTML})
	_, err := c.FetchCard(context.Background(), time.Now())
	assert.ErrorIs(t, err, race.ErrNoData)

	c, _ = upstream(t, nil)
	_, err = c.FetchCard(context.Background(), time.Now())
	assert.ErrorIs(t, err, race.ErrNoData)
}

func TestFetchEntrants(t *testing.T) {
	c, seen := upstream(t, map[string]string{
		"/owpc/pc/race/racelist":   racelistHTML(defaultEntrants()),
		"/owpc/pc/race/beforeinfo": beforeInfoHTML,
	})

	stats, err := c.FetchEntrants(context.Background(), testID())
	require.NoError(t, err)
	f := stats.Values

	// racelist
	assert.Equal(t, 4444.0, value(t, f, "r1_toban"))
	assert.Equal(t, 1.0, value(t, f, "r1_class"))
	assert.Equal(t, 4.0, value(t, f, "r4_class"))
	assert.InDelta(t, 52.0, value(t, f, "r1_weight"), 1e-9)
	assert.Equal(t, 1.0, value(t, f, "r2_f_count"))
	assert.Equal(t, 1.0, value(t, f, "r4_l_count"))
	assert.InDelta(t, 0.15, value(t, f, "r1_avg_st"), 1e-9)
	assert.InDelta(t, 6.5, value(t, f, "r1_global_win_rate"), 1e-9)
	assert.InDelta(t, 60.0, value(t, f, "r1_global_3ren_rate"), 1e-9)
	assert.InDelta(t, 7.1, value(t, f, "r1_local_win_rate"), 1e-9)
	assert.InDelta(t, 50.25, value(t, f, "r1_motor_3ren"), 1e-9)

	// taxa zerada e "-" viram ausência explícita, com issue
	assert.Contains(t, f, "r3_global_win_rate")
	assert.Nil(t, f["r3_global_win_rate"])
	assert.Nil(t, f["r3_local_win_rate"])
	assert.Contains(t, stats.Issues, race.Issue{Field: "r3_global_win_rate", Reason: "zero rate"})

	// beforeinfo
	assert.InDelta(t, 6.75, value(t, f, "r1_exhibition_time"), 1e-9)
	assert.InDelta(t, -0.5, value(t, f, "r1_tilt"), 1e-9)
	assert.Nil(t, f["r6_exhibition_time"])

	// exibição de largada
	assert.Equal(t, 1.0, value(t, f, "r2_exhibition_course"))
	assert.InDelta(t, 0.08, value(t, f, "r2_exhibition_st"), 1e-9)
	assert.Equal(t, 2.0, value(t, f, "r1_exhibition_course"))
	assert.InDelta(t, -0.01, value(t, f, "r1_exhibition_st"), 1e-9)
	assert.Equal(t, 1.0, value(t, f, "r3_exhibition_st"))

	// clima
	assert.InDelta(t, 15.0, value(t, f, "weather_temperature"), 1e-9)
	assert.InDelta(t, 3.0, value(t, f, "weather_wind_speed"), 1e-9)
	assert.Equal(t, 14.0, value(t, f, "weather_wind_direction"))
	assert.InDelta(t, 16.0, value(t, f, "weather_water_temp"), 1e-9)

	require.Len(t, *seen, 2)
	for _, r := range *seen {
		assert.Equal(t, "7", r.URL.Query().Get("rno"))
		assert.Equal(t, "04", r.URL.Query().Get("jcd"))
		assert.Equal(t, "20240307", r.URL.Query().Get("hd"))
	}
}

func TestFetchEntrantsBeforeInfoOptional(t *testing.T) {
	c, _ := upstream(t, map[string]string{"/owpc/pc/race/racelist": racelistHTML(defaultEntrants())})

	stats, err := c.FetchEntrants(context.Background(), testID())
	require.NoError(t, err)
	assert.InDelta(t, 6.5, value(t, stats.Values, "r1_global_win_rate"), 1e-9)
	assert.NotContains(t, stats.Values, "r1_exhibition_time")

	var fields []string
	for _, is := range stats.Issues {
		fields = append(fields, is.Field)
	}
	assert.Contains(t, fields, "beforeinfo")
}

func TestFetchEntrantsRaceListRequired(t *testing.T) {
	c, _ := upstream(t, map[string]string{"/owpc/pc/race/beforeinfo": beforeInfoHTML})
	_, err := c.FetchEntrants(context.Background(), testID())
	assert.ErrorIs(t, err, race.ErrNoData)
}

func TestFetchOdds(t *testing.T) {
	c, _ := upstream(t, map[string]string{"/owpc/pc/race/odds3t": oddsHTML()})

	quotes, err := c.FetchOdds(context.Background(), testID())
	require.NoError(t, err)
	require.Len(t, quotes, 119, "6-5-4 has no price")

	byCombo := make(map[race.Combination]float64, len(quotes))
	for _, q := range quotes {
		byCombo[q.Combination] = q.Price
	}
	for _, combo := range race.AllCombinations() {
		if combo == "6-5-4" {
			assert.NotContains(t, byCombo, combo)
			continue
		}
		var a, b, x int
		_, err := fmt.Sscanf(string(combo), "%d-%d-%d", &a, &b, &x)
		require.NoError(t, err)
		assert.InDelta(t, oddsPrice(a, b, x), byCombo[combo], 1e-9, "combination %s", combo)
	}
	assert.Equal(t, race.Combination("1-2-3"), quotes[0].Combination)
}

func TestFetchOddsEmptyIsNoData(t *testing.T) {
	c, _ := upstream(t, map[string]string{"/owpc/pc/race/odds3t": `<html><body><div class="contentsFrame1_inner"></div></body></html>`})
	_, err := c.FetchOdds(context.Background(), testID())
	assert.ErrorIs(t, err, race.ErrNoData)
}

func TestFetchResult(t *testing.T) {
	c, seen := upstream(t, map[string]string{"/owpc/pc/race/pay": payHTML()})
	ctx := context.Background()

	res, err := c.FetchResult(ctx, testID())
	require.NoError(t, err)
	assert.Equal(t, race.Result{Combination: "1-3-5", Payout: 740}, res)
	assert.Equal(t, "20240307", (*seen)[0].URL.Query().Get("hd"))
	assert.Empty(t, (*seen)[0].URL.Query().Get("jcd"))

	void, err := c.FetchResult(ctx, race.NewID(testID().Date, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, race.Result{Combination: "2-1-4", Payout: 1230, Void: true}, void)

	big, err := c.FetchResult(ctx, race.NewID(testID().Date, 4, 1))
	require.NoError(t, err)
	assert.Equal(t, 12340, big.Payout)

	wide, err := c.FetchResult(ctx, race.NewID(testID().Date, 4, 9))
	require.NoError(t, err)
	assert.Equal(t, race.Result{Combination: "3-1-2", Payout: 7400}, wide)
}

func TestFetchResultUnavailable(t *testing.T) {
	c, _ := upstream(t, map[string]string{"/owpc/pc/race/pay": payHTML()})
	ctx := context.Background()

	_, err := c.FetchResult(ctx, race.NewID(testID().Date, 4, 8))
	assert.ErrorIs(t, err, race.ErrResultUnavailable)

	_, err = c.FetchResult(ctx, race.NewID(testID().Date, 9, 1))
	assert.ErrorIs(t, err, race.ErrResultUnavailable)

	// pagamento ilegível não vira retorno 0
	_, err = c.FetchResult(ctx, race.NewID(testID().Date, 4, 10))
	assert.ErrorIs(t, err, race.ErrResultUnavailable)
	assert.ErrorContains(t, err, "特払い")
}
