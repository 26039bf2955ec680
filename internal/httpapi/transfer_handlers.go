package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"golinks.org/internal/audit"
	"golinks.org/internal/authz"
	"golinks.org/internal/events"
	"golinks.org/internal/transfer"
)

// issueTransfer mints a transfer token for the link and returns the URL the
// current owner hands to the recipient.
func (a *API) issueTransfer(w http.ResponseWriter, r *http.Request, id int64) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	token, err := a.transfers.Issue(r.Context(), id, actor)
	if err != nil {
		if errors.Is(err, authz.ErrUnauthorized) {
			writeError(w, r, http.StatusForbidden, "forbidden")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "could not create transfer link")
		return
	}
	_ = audit.LogEvent(r.Context(), "transfer.issued", map[string]any{
		"link_id": id,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"url": transfer.TransferURL(a.baseURL, token),
	})
}

// handleRedeemTransfer consumes a transfer token and moves ownership of the
// referenced link to the caller. Every failure is a 403; the body carries a
// user-facing message that only discloses detail when it is safe to.
func (a *API) handleRedeemTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	token := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/transfer_link/"), "/")
	if token == "" {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	actor, ok := principal(w, r)
	if !ok {
		return
	}

	l, err := a.transfers.Redeem(r.Context(), token, actor)
	if err != nil {
		var re *transfer.RedeemError
		if errors.As(err, &re) {
			writeError(w, r, http.StatusForbidden, re.UserMessage)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "could not redeem transfer link")
		return
	}

	a.stream.Publish(events.Event{
		Name:         events.LinkTransferred,
		LinkID:       l.ID,
		Organization: l.Organization,
		Actor:        actor.Email,
		Payload:      map[string]any{"shortpath": l.Shortpath, "new_owner": l.Owner},
	})
	_ = audit.LogEvent(r.Context(), "transfer.redeemed", map[string]any{
		"link_id":   l.ID,
		"shortpath": l.Shortpath,
		"new_owner": l.Owner,
	})
	writeJSON(w, http.StatusCreated, linkResponse{ShortLink: l, Mine: true})
}

// handleTransferRedirect bounces a recipient who opened the raw transfer URL
// to the frontend, which will POST the token to the redemption endpoint.
func (a *API) handleTransferRedirect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	token := strings.Trim(strings.TrimPrefix(r.URL.Path, "/_transfer/"), "/")
	if token == "" {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	http.Redirect(w, r, "/?transfer="+url.QueryEscape(token), http.StatusFound)
}
