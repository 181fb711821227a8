// Package slackx wraps the Slack Web API for the notification dispatcher and
// the admin-facing channel pickers. The wrapper exposes a narrow Notifier
// interface so the dispatcher can be exercised against a fake in tests.
//
// Token handling: the bot token is passed per call and a fresh API client is
// built for it, so a decrypted token lives exactly as long as the call that
// needed it.
package slackx

import (
	"context"
	"fmt"
	"net/http"

	"github.com/slack-go/slack"
)

// ChannelInfo is the subset of Slack conversation metadata the admin UI
// needs for its channel picker.
type ChannelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Notifier sends formatted messages to Slack channels.
type Notifier interface {
	// PostMessage sends msg to channelID using token and returns the Slack
	// message timestamp on success.
	PostMessage(ctx context.Context, token, channelID string, msg Message) (string, error)
}

// WebAPI is the production Notifier backed by the Slack Web API.
type WebAPI struct {
	apiURL string
	hc     *http.Client
}

// Option customizes a WebAPI.
type Option func(*WebAPI)

// WithAPIURL points the client at a non-default API origin (tests).
// The URL must end with a trailing slash, per the Slack client contract.
func WithAPIURL(u string) Option {
	return func(w *WebAPI) { w.apiURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(w *WebAPI) { w.hc = hc }
}

// NewWebAPI constructs a Slack Web API wrapper.
func NewWebAPI(opts ...Option) *WebAPI {
	w := &WebAPI{hc: http.DefaultClient}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *WebAPI) client(token string) *slack.Client {
	opts := []slack.Option{slack.OptionHTTPClient(w.hc)}
	if w.apiURL != "" {
		opts = append(opts, slack.OptionAPIURL(w.apiURL))
	}
	return slack.New(token, opts...)
}

// PostMessage implements Notifier via chat.postMessage.
func (w *WebAPI) PostMessage(ctx context.Context, token, channelID string, msg Message) (string, error) {
	_, ts, err := w.client(token).PostMessageContext(ctx, channelID,
		slack.MsgOptionText(msg.Fallback, false),
		slack.MsgOptionBlocks(msg.Blocks...),
	)
	if err != nil {
		return "", fmt.Errorf("slackx: post message: %w", err)
	}
	return ts, nil
}

// ListChannels returns the workspace's public channels via conversations.list.
// Used by the admin layer when configuring notification channels.
func (w *WebAPI) ListChannels(ctx context.Context, token string) ([]ChannelInfo, error) {
	var out []ChannelInfo
	cursor := ""
	for {
		channels, next, err := w.client(token).GetConversationsContext(ctx, &slack.GetConversationsParameters{
			Cursor:          cursor,
			ExcludeArchived: true,
			Limit:           200,
			Types:           []string{"public_channel"},
		})
		if err != nil {
			return nil, fmt.Errorf("slackx: list channels: %w", err)
		}
		for _, ch := range channels {
			out = append(out, ChannelInfo{ID: ch.ID, Name: ch.Name})
		}
		if next == "" {
			return out, nil
		}
		cursor = next
	}
}

var _ Notifier = (*WebAPI)(nil)
