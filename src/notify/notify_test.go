package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func fakeResponse(code int) *resty.Response {
	return &resty.Response{RawResponse: &http.Response{StatusCode: code}}
}

func TestIsRetryableResp(t *testing.T) {
	cases := []struct {
		name string
		resp *resty.Response
		err  error
		want bool
	}{
		{name: "error present", err: errors.New("boom"), want: true},
		{name: "server error", resp: fakeResponse(502), want: true},
		{name: "too many requests", resp: fakeResponse(429), want: true},
		{name: "timeout", resp: fakeResponse(408), want: true},
		{name: "bad request", resp: fakeResponse(400), want: false},
		{name: "ok response", resp: fakeResponse(204), want: false},
		{name: "nil resp", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isRetryableResp(tc.resp, tc.err); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func testConfig(url string) Config {
	return Config{DiscordWebhookURL: url, DiscordUsername: "bot", Timeout: 2 * time.Second, RetryAttempts: 3}
}

func TestDiscordPostsEmbed(t *testing.T) {
	var got discordPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscordNotifier(testConfig(srv.URL))
	d.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	err := d.Notify(context.Background(), Event{
		Kind:    "buy",
		Asset:   "BTC-USD",
		Level:   LevelInfo,
		Title:   "Entry filled",
		Message: "breakout confirmed",
		Fields:  map[string]string{"qty": "0.5", "price": "60000"},
	})
	require.NoError(t, err)

	require.Equal(t, "bot", got.Username)
	require.Len(t, got.Embeds, 1)
	embed := got.Embeds[0]
	require.Equal(t, "Entry filled", embed.Title)
	require.Equal(t, colorInfo, embed.Color)
	require.Equal(t, "2025-01-02T03:04:05Z", embed.Timestamp)
	require.Len(t, embed.Fields, 3)
	require.Equal(t, "asset", embed.Fields[0].Name)
	require.Equal(t, "price", embed.Fields[1].Name)
	require.Equal(t, "qty", embed.Fields[2].Name)
}

func TestDiscordRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscordNotifier(testConfig(srv.URL))
	d.http.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(time.Millisecond)

	require.NoError(t, d.Notify(context.Background(), Event{Kind: "sell", Title: "Exit"}))
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDiscordClientErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	d := NewDiscordNotifier(testConfig(srv.URL))
	err := d.Notify(context.Background(), Event{Kind: "sell", Title: "Exit"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "400")
}

func TestDiscordDisabledWithoutURL(t *testing.T) {
	d := NewDiscordNotifier(testConfig(""))
	require.False(t, d.Enabled())
	require.NoError(t, d.Notify(context.Background(), Event{Kind: "buy"}))
}

type failingNotifier struct{ calls int }

func (f *failingNotifier) Notify(context.Context, Event) error {
	f.calls++
	return errors.New("sink down")
}

func TestMultiContinuesPastFailingSink(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	entry := logrus.NewEntry(logger)

	bad := &failingNotifier{}
	m := NewMulti(entry, bad, nil, NewLogNotifier(entry))

	err := m.Notify(context.Background(), Event{Kind: "cap_reached", Asset: "SPY", Level: LevelWarn, Title: "Cap reached"})
	require.Error(t, err)
	require.Equal(t, 1, bad.calls)

	var sawWarn, sawEvent bool
	for _, e := range hook.AllEntries() {
		if e.Message == "notification sink failed" {
			sawWarn = true
		}
		if e.Message == "Cap reached" && e.Level == logrus.WarnLevel {
			require.Equal(t, "SPY", e.Data["asset"])
			sawEvent = true
		}
	}
	require.True(t, sawWarn)
	require.True(t, sawEvent)
}
