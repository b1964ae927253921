package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"dlscan/internal"
	"dlscan/internal/config"
)

type Connector struct {
	service *gmail.Service
}

func NewConnector(ctx context.Context, cfg config.Config) (*Connector, error) {
	if err := cfg.Require("GMAIL_CLIENT_ID", cfg.GmailClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_CLIENT_SECRET", cfg.GmailClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailReadonlyScope},
	}

	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &Connector{service: svc}, nil
}

// FetchInbox lists label and downloads each message in raw form. Only
// messages with an attachment are requested.
func (c *Connector) FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMessage, error) {
	listCall := c.service.Users.Messages.List("me").LabelIds(label).Q("has:attachment").MaxResults(int64(max))
	listResp, err := listCall.Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	out := make([]internal.FetchedMessage, 0, len(listResp.Messages))
	for _, msgRef := range listResp.Messages {
		if msgRef.Id == "" {
			continue
		}

		rawResp, err := c.service.Users.Messages.Get("me", msgRef.Id).Format("raw").Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		if rawResp.Raw == "" {
			continue
		}

		rawBytes, err := decodeBase64URL(rawResp.Raw)
		if err != nil {
			return nil, err
		}

		msg, err := fromRaw(msgRef.Id, rawBytes, time.Now())
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}

	return out, nil
}

// fromRaw reads the envelope headers from the message itself, so one API
// call per message is enough.
func fromRaw(gmailID string, raw []byte, now time.Time) (internal.FetchedMessage, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return internal.FetchedMessage{}, fmt.Errorf("parse gmail message %s: %w", gmailID, err)
	}

	received := now.UTC().Format(time.RFC3339)
	if dateHeader := env.GetHeader("Date"); dateHeader != "" {
		if t, err := mail.ParseDate(dateHeader); err == nil {
			received = t.UTC().Format(time.RFC3339)
		} else if t, err := mailDateFallback(dateHeader); err == nil {
			received = t.UTC().Format(time.RFC3339)
		}
	}

	messageID := strings.TrimSpace(env.GetHeader("Message-Id"))
	if messageID == "" {
		messageID = gmailID
	}

	return internal.FetchedMessage{
		Provider:   "gmail",
		MessageID:  messageID,
		Subject:    env.GetHeader("Subject"),
		From:       env.GetHeader("From"),
		ReceivedAt: received,
		Raw:        raw,
	}, nil
}

func decodeBase64URL(input string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("decode gmail raw payload: %w", err)
}

func mailDateFallback(value string) (time.Time, error) {
	layouts := []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822, time.RFC850, time.ANSIC}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format")
}
