package notify

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	colorInfo  = 0x2ecc71
	colorWarn  = 0xf1c40f
	colorError = 0xe74c3c

	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 5 * time.Second
)

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields,omitempty"`
	Footer      map[string]any `json:"footer,omitempty"`
	Timestamp   string         `json:"timestamp"`
}

type discordPayload struct {
	Username string         `json:"username,omitempty"`
	Embeds   []discordEmbed `json:"embeds"`
}

// DiscordNotifier posts events as webhook embeds. It is disabled when no URL is set.
type DiscordNotifier struct {
	webhookURL string
	username   string
	http       *resty.Client
	now        func() time.Time
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	if r == nil {
		return false
	}

	code := r.StatusCode()

	if code >= 500 && code <= 599 {
		return true
	}
	if code == 429 {
		return true
	}
	if code == 408 {
		return true
	}
	return false
}

func NewDiscordNotifier(cfg Config) *DiscordNotifier {
	retryCount := cfg.RetryAttempts - 1
	if retryCount < 0 {
		retryCount = 0
	}

	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(retryCount).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	return &DiscordNotifier{
		webhookURL: cfg.DiscordWebhookURL,
		username:   cfg.DiscordUsername,
		http:       httpClient,
		now:        time.Now,
	}
}

func (d *DiscordNotifier) Enabled() bool {
	return d.webhookURL != ""
}

func (d *DiscordNotifier) Notify(ctx context.Context, event Event) error {
	if !d.Enabled() {
		return nil
	}

	resp, err := d.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(d.payload(event)).
		Post(d.webhookURL)
	if err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("discord returned status: %d", resp.StatusCode())
	}
	return nil
}

func (d *DiscordNotifier) payload(event Event) discordPayload {
	color := colorInfo
	switch event.Level {
	case LevelWarn:
		color = colorWarn
	case LevelError:
		color = colorError
	}

	keys := make([]string, 0, len(event.Fields))
	for k := range event.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]discordField, 0, len(keys)+1)
	if event.Asset != "" {
		fields = append(fields, discordField{Name: "asset", Value: event.Asset, Inline: true})
	}
	for _, k := range keys {
		fields = append(fields, discordField{Name: k, Value: event.Fields[k], Inline: true})
	}

	return discordPayload{
		Username: d.username,
		Embeds: []discordEmbed{{
			Title:       event.Title,
			Description: event.Message,
			Color:       color,
			Fields:      fields,
			Footer:      map[string]any{"text": "papertrader | " + event.Kind},
			Timestamp:   d.now().UTC().Format(time.RFC3339),
		}},
	}
}
