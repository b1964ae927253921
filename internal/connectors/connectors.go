// Package connectors pulls licence scans sent by email into the inbox.
package connectors

import (
	"context"

	"dlscan/internal"
)

type MailConnector interface {
	FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMessage, error)
}
