// Package mailbox provides the Gmail-backed implementation of the
// mailbox-search collaborator.
package mailbox

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/reconflow/reconflow/internal/common"
	"github.com/reconflow/reconflow/internal/service"
)

// Config holds client configuration.
type Config struct {
	// CredentialsPath points at the OAuth client credentials JSON.
	CredentialsPath string
	// TokenPath is where the user token is persisted after auth.
	TokenPath string
	// MinRequestInterval is the spacing enforced between outbound
	// calls for this account.
	MinRequestInterval time.Duration
}

// Client implements service.Mailbox against the Gmail API. Every call
// passes the account's rate gate first.
type Client struct {
	svc    *gmail.Service
	gate   *gate
	userID string
}

var _ service.Mailbox = (*Client)(nil)

// NewClient creates a Gmail client from stored credentials and token.
// A missing or revoked token surfaces as common.ErrReauthRequired so
// callers can flag the integration for reconnection instead of
// retrying.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	oauthConfig, err := loadOAuthConfig(cfg.CredentialsPath)
	if err != nil {
		return nil, err
	}

	token, err := LoadToken(cfg.TokenPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrReauthRequired, err)
	}

	svc, err := gmail.NewService(ctx, option.WithTokenSource(oauthConfig.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	interval := cfg.MinRequestInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}

	return &Client{
		svc:    svc,
		gate:   newGate(interval),
		userID: "me",
	}, nil
}

// Search returns message references matching the query.
func (c *Client) Search(ctx context.Context, query string, maxResults int64) ([]service.MessageRef, error) {
	if err := c.gate.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.svc.Users.Messages.List(c.userID).
		Q(query).
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapAPIError("search", err)
	}

	refs := make([]service.MessageRef, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		refs = append(refs, service.MessageRef{ID: m.Id, ThreadID: m.ThreadId})
	}
	return refs, nil
}

// GetMessage loads a full message with headers, body and attachment
// references.
func (c *Client) GetMessage(ctx context.Context, id string) (*service.Message, error) {
	if err := c.gate.wait(ctx); err != nil {
		return nil, err
	}

	m, err := c.svc.Users.Messages.Get(c.userID, id).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapAPIError("get message", err)
	}

	msg := &service.Message{
		ID:      m.Id,
		Snippet: m.Snippet,
	}
	if m.Payload != nil {
		for _, h := range m.Payload.Headers {
			switch h.Name {
			case "Subject":
				msg.Subject = h.Value
			case "From":
				msg.From = h.Value
			case "Date":
				if t, perr := mail.ParseDate(h.Value); perr == nil {
					msg.Date = t
				}
			}
		}
		collectParts(m.Payload, msg)
	}
	if msg.Date.IsZero() && m.InternalDate > 0 {
		msg.Date = time.UnixMilli(m.InternalDate)
	}
	return msg, nil
}

// GetAttachment downloads one attachment's bytes.
func (c *Client) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	if err := c.gate.wait(ctx); err != nil {
		return nil, err
	}

	att, err := c.svc.Users.Messages.Attachments.Get(c.userID, messageID, attachmentID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapAPIError("get attachment", err)
	}

	data, err := base64.URLEncoding.DecodeString(att.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode attachment data: %w", err)
	}
	return data, nil
}

// collectParts walks the MIME tree accumulating text bodies and
// attachment references.
func collectParts(part *gmail.MessagePart, msg *service.Message) {
	if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
		msg.Attachments = append(msg.Attachments, service.AttachmentRef{
			ID:       part.Body.AttachmentId,
			Filename: part.Filename,
			MimeType: part.MimeType,
			Size:     part.Body.Size,
		})
	} else if strings.HasPrefix(part.MimeType, "text/") && part.Body != nil && part.Body.Data != "" {
		if data, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
			msg.Body += string(data)
		}
	}

	for _, child := range part.Parts {
		collectParts(child, msg)
	}
}

// mapAPIError translates transport failures into the application's
// error taxonomy. Auth failures must not be retried; rate limits may.
func mapAPIError(op string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: %s: %v", common.ErrReauthRequired, op, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403:
			if apiErr.Code == 401 || strings.Contains(strings.ToLower(apiErr.Message), "auth") {
				return fmt.Errorf("%w: %s: %v", common.ErrReauthRequired, op, err)
			}
			return fmt.Errorf("%w: %s: %v", common.ErrMailboxRateLimit, op, err)
		case 429:
			return fmt.Errorf("%w: %s: %v", common.ErrMailboxRateLimit, op, err)
		}
	}

	return fmt.Errorf("mailbox %s failed: %w", op, err)
}

func loadOAuthConfig(credentialsPath string) (*oauth2.Config, error) {
	credBytes, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(credBytes, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}
	return oauthConfig, nil
}

// LoadToken reads a persisted OAuth token.
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Warn("Failed to close token file", "error", cerr)
		}
	}()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("invalid token file: %w", err)
	}
	return token, nil
}

// SaveToken persists an OAuth token for later runs.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Warn("Failed to close token file", "error", cerr)
		}
	}()

	return json.NewEncoder(f).Encode(token)
}
