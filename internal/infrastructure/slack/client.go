package slack

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/slack-go/slack"

	"github.com/vibedev/vira/internal/domain/entity"
	domainerrors "github.com/vibedev/vira/internal/domain/errors"
	"github.com/vibedev/vira/internal/infrastructure/observability"
	"github.com/vibedev/vira/internal/usecase/reply"
)

// repliesPageSize is the page size for conversations.replies pagination.
const repliesPageSize = 200

// AboutPageLink builds the deep link to the app's about tab.
func AboutPageLink(teamID, appID string) string {
	return "slack://app?team=" + teamID + "&id=" + appID + "&tab=about"
}

// Client wraps the Slack API client with domain-specific operations.
// Implements event.ThreadSource, reply.ConversationStore and
// reply.Poster.
type Client struct {
	api       *slack.Client
	appID     string
	aboutLink string
	metrics   *observability.Metrics

	mu       sync.RWMutex
	profiles map[string]*entity.UserProfile
}

// NewClient creates a new Slack client. appID may be empty; task
// labels then render without an about-page link.
func NewClient(botToken, appID string, apiURL ...string) *Client {
	var api *slack.Client
	if len(apiURL) > 0 && apiURL[0] != "" {
		// Use custom API URL (for E2E testing)
		api = slack.New(botToken, slack.OptionAPIURL(apiURL[0]))
	} else {
		api = slack.New(botToken)
	}

	return &Client{
		api:      api,
		appID:    appID,
		profiles: make(map[string]*entity.UserProfile),
	}
}

// ResolveIdentity calls auth.test and returns who this bot runs as.
// Called once at startup; everything downstream needs the bot user ID
// to tell its own messages apart. The about-page link depends on the
// team ID and is derived here as a side effect.
func (c *Client) ResolveIdentity(ctx context.Context) (entity.BotIdentity, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return entity.BotIdentity{}, categorizeSlackError(err, "auth test")
	}
	if c.appID != "" {
		c.aboutLink = AboutPageLink(resp.TeamID, c.appID)
	}
	return entity.BotIdentity{UserID: resp.UserID, TeamID: resp.TeamID}, nil
}

// AboutLink returns the app's about-page link, or empty before
// ResolveIdentity or without a configured app ID.
func (c *Client) AboutLink() string {
	return c.aboutLink
}

// SetMetrics enables delivery metrics. Call before serving traffic.
func (c *Client) SetMetrics(m *observability.Metrics) {
	c.metrics = m
}

// GetThreadHead returns the first message of a thread, or nil when the
// thread has no messages.
func (c *Client) GetThreadHead(ctx context.Context, channelID, threadTS string) (*entity.ThreadHead, error) {
	msgs, _, _, err := c.api.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
		ChannelID: channelID,
		Timestamp: threadTS,
		Limit:     1,
	})
	if err != nil {
		return nil, categorizeSlackError(err, "fetching thread head")
	}
	if len(msgs) == 0 {
		return nil, nil
	}

	head := msgs[0]
	return &entity.ThreadHead{
		TS:               head.Timestamp,
		Text:             head.Text,
		MentionedUserIDs: entity.MentionedUserIDs(head.Text),
	}, nil
}

// GetThreadMessages returns the thread's messages strictly before
// latestTS, oldest first. The triggering message itself is excluded so
// it can be appended to the prompt exactly once.
func (c *Client) GetThreadMessages(ctx context.Context, channelID, threadTS, latestTS string) (entity.History, error) {
	params := &slack.GetConversationRepliesParameters{
		ChannelID: channelID,
		Timestamp: threadTS,
		Latest:    latestTS,
		Inclusive: false,
		Limit:     repliesPageSize,
	}

	var history entity.History
	for {
		msgs, hasMore, nextCursor, err := c.api.GetConversationRepliesContext(ctx, params)
		if err != nil {
			return nil, categorizeSlackError(err, "fetching thread messages")
		}

		for _, m := range msgs {
			if m.Timestamp == latestTS {
				continue
			}
			profile, err := c.ResolveUserProfile(ctx, m.User)
			if err != nil {
				// A deactivated author should not sink the whole thread.
				profile = &entity.UserProfile{ID: m.User}
			}
			history = append(history, entity.NewMessage(profile, m.Timestamp, m.Text, nil, m.ThreadTimestamp))
		}

		if !hasMore {
			return history, nil
		}
		params.Cursor = nextCursor
	}
}

// ResolveUserProfile resolves a user ID to a profile, caching results
// for the process lifetime. Display names change rarely enough that a
// stale entry is acceptable.
func (c *Client) ResolveUserProfile(ctx context.Context, userID string) (*entity.UserProfile, error) {
	c.mu.RLock()
	profile, ok := c.profiles[userID]
	c.mu.RUnlock()
	if ok {
		return profile, nil
	}

	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return nil, categorizeSlackError(err, "getting user info")
	}

	profile = &entity.UserProfile{
		ID:          user.ID,
		RealName:    user.RealName,
		DisplayName: user.Profile.DisplayName,
	}

	c.mu.Lock()
	c.profiles[userID] = profile
	c.mu.Unlock()

	return profile, nil
}

// PostMessage sends an inline reply into the channel/thread. The text
// goes into a section block; the task label and environment marker, if
// any, go into a trailing context block.
func (c *Client) PostMessage(ctx context.Context, channelID, threadTS, text string, meta reply.ReplyMeta) error {
	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, text, false, false),
			nil, nil,
		),
	}

	var elements []slack.MixedElement
	if meta.Task != "" {
		label := "Task: " + string(meta.Task)
		if c.aboutLink != "" {
			label = fmt.Sprintf("<%s|%s>", c.aboutLink, label)
		}
		elements = append(elements, slack.NewTextBlockObject(slack.MarkdownType, label, false, false))
	}
	if meta.EnvTag != "" {
		elements = append(elements, slack.NewTextBlockObject(slack.PlainTextType, meta.EnvTag, false, false))
	}
	if len(elements) > 0 {
		blocks = append(blocks, slack.NewContextBlock("", elements...))
	}

	options := []slack.MsgOption{
		slack.MsgOptionText(text, false),
		slack.MsgOptionBlocks(blocks...),
		slack.MsgOptionTS(threadTS),
	}

	_, _, err := c.api.PostMessageContext(ctx, channelID, options...)
	if err != nil {
		return categorizeSlackError(err, "posting reply")
	}
	if c.metrics != nil {
		c.metrics.RecordReplyDelivered(ctx, "inline")
	}
	return nil
}

// UploadFile attaches the content as a text snippet with a short
// inline caption.
func (c *Client) UploadFile(ctx context.Context, channelID, threadTS, content, caption string) error {
	_, err := c.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Channel:         channelID,
		ThreadTimestamp: threadTS,
		Filename:        "reply.txt",
		FileSize:        len(content),
		Content:         content,
		InitialComment:  caption,
	})
	if err != nil {
		return categorizeSlackError(err, "uploading reply file")
	}
	if c.metrics != nil {
		c.metrics.RecordReplyDelivered(ctx, "file")
	}
	return nil
}

// categorizeSlackError wraps Slack API errors as transient or permanent domain errors.
func categorizeSlackError(err error, operation string) error {
	if err == nil {
		return nil
	}

	// Check for network errors (transient)
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domainerrors.NewTransientError(
			fmt.Sprintf("%s: network error", operation),
			err,
		)
	}

	// Check for Slack API errors
	var slackErr slack.SlackErrorResponse
	if errors.As(err, &slackErr) {
		switch slackErr.Err {
		// Rate limiting - transient
		case "rate_limited":
			return domainerrors.NewTransientError(
				fmt.Sprintf("%s: rate limited", operation),
				err,
			)

		// Server errors - transient
		case "internal_error", "fatal_error", "service_unavailable":
			return domainerrors.NewTransientError(
				fmt.Sprintf("%s: slack server error", operation),
				err,
			)

		// Client errors - permanent
		case "invalid_auth", "account_inactive", "token_revoked", "no_permission",
			"channel_not_found", "not_in_channel", "is_archived", "thread_not_found":
			return domainerrors.NewPermanentError(
				fmt.Sprintf("%s: %s", operation, slackErr.Err),
				err,
			)

		// Default to permanent for unknown Slack errors
		default:
			return domainerrors.NewPermanentError(
				fmt.Sprintf("%s: %s", operation, slackErr.Err),
				err,
			)
		}
	}

	// Check for context errors (transient)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domainerrors.NewTransientError(
			fmt.Sprintf("%s: context timeout", operation),
			err,
		)
	}

	// Default to permanent error
	return domainerrors.NewPermanentError(
		fmt.Sprintf("%s: %v", operation, err),
		err,
	)
}
