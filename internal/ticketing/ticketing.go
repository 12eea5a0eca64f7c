// Package ticketing files tracking tickets for opened remediation
// pull requests.
package ticketing

import "context"

// CreateTicketRequest describes the remediation to track.
type CreateTicketRequest struct {
	Org                 string   `json:"org"`
	Repo                string   `json:"repo"`
	PRURL               string   `json:"pr_url"`
	PRNumber            int      `json:"pr_number"`
	Severity            string   `json:"severity,omitempty"`
	PackageCount        int      `json:"package_count,omitempty"`
	MajorVersionUpdates []string `json:"major_version_updates,omitempty"`
	IdempotencyKey      string   `json:"idempotency_key,omitempty"`
}

// Ticket identifies a created tracking ticket.
type Ticket struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Adapter is the ticketing boundary. CreateTicket must be safe to
// retry: an existing ticket carrying the same idempotency key is
// returned instead of filing a duplicate.
type Adapter interface {
	CreateTicket(ctx context.Context, req CreateTicketRequest) (*Ticket, error)
}
