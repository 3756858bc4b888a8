// Package notify contains thin HTTP clients for the managed delivery
// providers. This file defines the mail function client and the tagged
// request structs for each mail kind.
package notify

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Mail kinds accepted by the mail function. Each kind pairs with exactly one
// payload struct below.
const (
	MailKindOwnerClaimAlert   = "owner_claim_alert"
	MailKindClaimConfirmation = "claim_confirmation"
	MailKindUnclaimReceipt    = "unclaim_receipt"
)

// OwnerClaimAlert tells a list owner that an item on their list was claimed.
// Which of ClaimerName/ProductName is populated depends on the owner's
// notification-level preference; the composer blanks the hidden field.
type OwnerClaimAlert struct {
	Kind              string `json:"kind"`
	OwnerEmail        string `json:"owner_email"`
	OwnerName         string `json:"owner_name"`
	ListName          string `json:"list_name"`
	ProductName       string `json:"product_name,omitempty"`
	ClaimerName       string `json:"claimer_name,omitempty"`
	NotificationLevel string `json:"notification_level"`
}

// Validate checks the payload before it is sent anywhere.
func (a OwnerClaimAlert) Validate() error {
	if a.OwnerEmail == "" {
		return errors.New("notify: owner alert requires owner_email")
	}
	if a.ListName == "" {
		return errors.New("notify: owner alert requires list_name")
	}
	return nil
}

// ClaimConfirmation is the claimer-facing confirmation carrying the unclaim
// link that authorizes reversal.
type ClaimConfirmation struct {
	Kind         string `json:"kind"`
	ClaimerName  string `json:"claimer_name"`
	ClaimerEmail string `json:"claimer_email"`
	ProductName  string `json:"product_name"`
	ProductURL   string `json:"product_url,omitempty"`
	UnclaimURL   string `json:"unclaim_url"`
}

// Validate checks the payload before it is sent anywhere.
func (c ClaimConfirmation) Validate() error {
	if c.ClaimerEmail == "" {
		return errors.New("notify: claim confirmation requires claimer_email")
	}
	if c.UnclaimURL == "" {
		return errors.New("notify: claim confirmation requires unclaim_url")
	}
	return nil
}

// UnclaimReceipt confirms to a former claimer that their reservation was
// released. Addressed to the email captured before the claim fields were
// cleared.
type UnclaimReceipt struct {
	Kind         string `json:"kind"`
	ClaimerName  string `json:"claimer_name"`
	ClaimerEmail string `json:"claimer_email"`
	ProductName  string `json:"product_name"`
}

// Validate checks the payload before it is sent anywhere.
func (r UnclaimReceipt) Validate() error {
	if r.ClaimerEmail == "" {
		return errors.New("notify: unclaim receipt requires claimer_email")
	}
	return nil
}

// MailClient posts tagged mail payloads to the mail function using the
// service-role key. Like the push client it is best-effort from the caller's
// perspective.
type MailClient struct {
	endpoint   string
	serviceKey string
	hc         *http.Client
}

// NewMailClient builds a client for the given mail function endpoint. An
// empty endpoint yields a disabled client whose sends return ErrDisabled.
func NewMailClient(endpoint, serviceKey string, timeout time.Duration) *MailClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MailClient{
		endpoint:   endpoint,
		serviceKey: serviceKey,
		hc:         &http.Client{Timeout: timeout},
	}
}

// SendOwnerClaimAlert delivers an owner-facing claim alert.
func (c *MailClient) SendOwnerClaimAlert(ctx context.Context, a OwnerClaimAlert) error {
	a.Kind = MailKindOwnerClaimAlert
	return c.send(ctx, a.Validate(), a)
}

// SendClaimConfirmation delivers the claimer confirmation with unclaim link.
func (c *MailClient) SendClaimConfirmation(ctx context.Context, cc ClaimConfirmation) error {
	cc.Kind = MailKindClaimConfirmation
	return c.send(ctx, cc.Validate(), cc)
}

// SendUnclaimReceipt delivers the release confirmation to the former claimer.
func (c *MailClient) SendUnclaimReceipt(ctx context.Context, r UnclaimReceipt) error {
	r.Kind = MailKindUnclaimReceipt
	return c.send(ctx, r.Validate(), r)
}

func (c *MailClient) send(ctx context.Context, verr error, v any) error {
	if c == nil || c.endpoint == "" {
		return ErrDisabled
	}
	if verr != nil {
		return verr
	}
	return postJSON(ctx, c.hc, c.endpoint, c.serviceKey, v)
}
