package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/slack-go/slack"
)

const maxRetries = 3

var baseDelay = time.Second

// wait blocks for d or until ctx is done.
var wait = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var log = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SlackClient posts messages to Slack channels addressed by name.
type SlackClient interface {
	SendMessage(ctx context.Context, channel, text string) error
}

type slackClient struct {
	api *slack.Client

	mu         sync.Mutex
	channelIDs map[string]string
}

// NewSlackClient creates a client authenticated with SLACK_BOT_TOKEN.
func NewSlackClient() (SlackClient, error) {
	token := os.Getenv("SLACK_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("missing required environment variable: SLACK_BOT_TOKEN")
	}
	return &slackClient{api: slack.New(token)}, nil
}

// doWithRetry retries the provided function with exponential backoff for as
// long as retryable accepts the error. It gives up as soon as ctx is done.
func (s *slackClient) doWithRetry(ctx context.Context, retryable func(error) bool, fn func() error) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !retryable(err) {
			return err
		}
		if i == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << i)
		var rateLimited *slack.RateLimitedError
		if errors.As(err, &rateLimited) && rateLimited.RetryAfter > delay {
			delay = rateLimited.RetryAfter
		}
		if waitErr := wait(ctx, delay); waitErr != nil {
			return fmt.Errorf("%w, last error: %w", waitErr, err)
		}
	}
	return fmt.Errorf("after %d retries, last error: %w", maxRetries, err)
}

// retryableRead accepts transient failures of read-only calls: rate limits,
// 5xx responses and transport errors. Errors reported by the Slack API
// itself are final.
func retryableRead(err error) bool {
	var rateLimited *slack.RateLimitedError
	if errors.As(err, &rateLimited) {
		return true
	}
	var apiErr slack.SlackErrorResponse
	if errors.As(err, &apiErr) {
		return false
	}
	var statusErr slack.StatusCodeError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= http.StatusInternalServerError
	}
	return true
}

// retryablePost only accepts rate limits, which Slack rejects before the
// message is posted. Any other failure may already have delivered it.
func retryablePost(err error) bool {
	var rateLimited *slack.RateLimitedError
	return errors.As(err, &rateLimited)
}

// SendMessage posts text to the channel with the given name. A leading '#'
// in the name is ignored.
func (s *slackClient) SendMessage(ctx context.Context, channel, text string) error {
	name := strings.TrimLeft(channel, "#")
	channelID, err := s.channelID(ctx, name)
	if err != nil {
		return err
	}

	err = s.doWithRetry(ctx, retryablePost, func() error {
		_, _, err := s.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to post message to channel %s: %w", name, err)
	}
	log.Info("Posted message to Slack channel", slog.String("channel", name), slog.String("channelID", channelID))
	return nil
}

// channelID resolves a channel name to its ID by paging through the
// workspace's conversations. Resolved names are cached.
func (s *slackClient) channelID(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.channelIDs[name]; ok {
		return id, nil
	}
	if s.channelIDs == nil {
		s.channelIDs = make(map[string]string)
	}

	params := &slack.GetConversationsParameters{
		Types:           []string{"public_channel", "private_channel"},
		ExcludeArchived: true,
		Limit:           200,
	}
	for {
		var (
			channels []slack.Channel
			cursor   string
		)
		err := s.doWithRetry(ctx, retryableRead, func() error {
			var err error
			channels, cursor, err = s.api.GetConversationsContext(ctx, params)
			return err
		})
		if err != nil {
			return "", fmt.Errorf("failed to list Slack channels: %w", err)
		}
		for _, c := range channels {
			s.channelIDs[c.Name] = c.ID
		}
		if id, ok := s.channelIDs[name]; ok {
			return id, nil
		}
		if cursor == "" {
			return "", fmt.Errorf("slack channel %q not found", name)
		}
		params.Cursor = cursor
	}
}

// SentMessage is a message recorded by MockSlackClient.
type SentMessage struct {
	Channel string
	Text    string
}

// MockSlackClient implements SlackClient for testing
type MockSlackClient struct {
	SendError    error
	SentMessages []SentMessage
}

func (m *MockSlackClient) SendMessage(_ context.Context, channel, text string) error {
	if m.SendError != nil {
		return m.SendError
	}
	m.SentMessages = append(m.SentMessages, SentMessage{Channel: channel, Text: text})
	return nil
}
