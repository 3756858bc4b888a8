// Package services – shareable URL conventions.
//
// List access is encoded as ?code=... and unclaim as
// ?unclaim=<token>&product=<id> on the same viewer page. Generating a link
// and parsing it back must reproduce the original code/token/id exactly, so
// both directions live side by side here.
package services

import (
	"errors"
	"net/url"
)

// Viewer query parameter names. Shared with every client surface.
const (
	shareCodeParam      = "code"
	unclaimTokenParam   = "unclaim"
	unclaimProductParam = "product"
)

// BuildShareURL returns the viewer URL a guest follows to open a list.
func BuildShareURL(base *url.URL, accessCode string) string {
	u := *base
	q := u.Query()
	q.Set(shareCodeParam, accessCode)
	u.RawQuery = q.Encode()
	return u.String()
}

// BuildUnclaimURL returns the mailed link that authorizes releasing a claim.
func BuildUnclaimURL(base *url.URL, productID, token string) string {
	u := *base
	q := u.Query()
	q.Set(unclaimTokenParam, token)
	q.Set(unclaimProductParam, productID)
	u.RawQuery = q.Encode()
	return u.String()
}

// ViewerLink is the parsed form of a viewer URL: either a share link
// (AccessCode set) or an unclaim link (ProductID and Token set).
type ViewerLink struct {
	AccessCode string
	ProductID  string
	Token      string
}

// ErrNotViewerLink is returned by ParseViewerURL when the URL carries
// neither a share code nor an unclaim credential pair.
var ErrNotViewerLink = errors.New("url is not a viewer link")

// ParseViewerURL decodes a viewer URL back into its link parameters.
// Unclaim parameters take precedence when both are present.
func ParseViewerURL(raw string) (ViewerLink, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return ViewerLink{}, err
	}
	q := u.Query()

	if tok := q.Get(unclaimTokenParam); tok != "" {
		pid := q.Get(unclaimProductParam)
		if pid == "" {
			return ViewerLink{}, ErrNotViewerLink
		}
		return ViewerLink{ProductID: pid, Token: tok}, nil
	}
	if code := q.Get(shareCodeParam); code != "" {
		return ViewerLink{AccessCode: code}, nil
	}
	return ViewerLink{}, ErrNotViewerLink
}
