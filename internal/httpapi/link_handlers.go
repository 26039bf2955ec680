package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"golinks.org/internal/audit"
	"golinks.org/internal/authz"
	"golinks.org/internal/events"
	"golinks.org/internal/link"
	"golinks.org/internal/user"
)

type sessionRequest struct {
	Email        string `json:"email"`
	Organization string `json:"organization"`
}

// handleSession exchanges a verified identity for a session token. In
// production the email and organization come from the SSO proxy fronting
// this service; the handler materializes the user record and signs a
// session for it.
func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req sessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	u, err := a.users.GetOrCreate(r.Context(), req.Email, req.Organization)
	if err != nil {
		if errors.Is(err, user.ErrInvalidInput) {
			writeError(w, r, http.StatusBadRequest, "email and organization are required")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "could not resolve user")
		return
	}
	token, expiresAt, err := a.sessions.Issue(u.ID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "could not issue session")
		return
	}
	_ = audit.LogEvent(r.Context(), "session.issued", map[string]any{
		"user_id": u.ID,
		"email":   u.Email,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"token":      token,
		"expires_at": expiresAt,
		"user":       u,
	})
}

type linkResponse struct {
	link.ShortLink
	Mine bool `json:"mine"`
}

type createLinkRequest struct {
	Shortpath   string `json:"shortpath"`
	Destination string `json:"destination"`
	Owner       string `json:"owner,omitempty"`
}

type updateLinkRequest struct {
	Destination string `json:"destination"`
}

func (a *API) handleLinksCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listLinks(w, r)
	case http.MethodPost:
		a.createLink(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listLinks(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	links, err := a.links.ListByOrganization(r.Context(), actor.Organization)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "could not list links")
		return
	}
	out := make([]linkResponse, 0, len(links))
	for _, l := range links {
		out = append(out, linkResponse{ShortLink: l, Mine: l.Owner == actor.Email})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) createLink(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	var req createLinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	owner := actor.Email
	if req.Owner != "" && user.NormalizeEmail(req.Owner) != actor.Email {
		// Creating a link on someone else's behalf is an admin action.
		if !actor.Admin {
			writeError(w, r, http.StatusForbidden, "forbidden")
			return
		}
		owner = req.Owner
	}

	l, err := a.links.Create(r.Context(), actor.Organization, owner, req.Shortpath, req.Destination)
	if err != nil {
		var ce *link.CreationError
		if errors.As(err, &ce) {
			writeError(w, r, http.StatusBadRequest, ce.Message)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "could not create link")
		return
	}

	a.stream.Publish(events.Event{
		Name:         events.LinkCreated,
		LinkID:       l.ID,
		Organization: l.Organization,
		Actor:        actor.Email,
		Payload:      map[string]any{"shortpath": l.Shortpath, "destination": l.DestinationURL},
	})
	_ = audit.LogEvent(r.Context(), "link.created", map[string]any{
		"link_id":   l.ID,
		"shortpath": l.Shortpath,
		"owner":     l.Owner,
	})
	writeJSON(w, http.StatusCreated, linkResponse{ShortLink: l, Mine: l.Owner == actor.Email})
}

// handleLinkResource routes /api/links/{id} and /api/links/{id}/transfer_link.
func (a *API) handleLinkResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/links/"), "/")
	parts := strings.Split(rest, "/")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusNotFound, "link not found")
		return
	}

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			a.getLink(w, r, id)
		case http.MethodPut:
			a.updateLink(w, r, id)
		case http.MethodDelete:
			a.deleteLink(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
		}
	case len(parts) == 2 && parts[1] == "transfer_link":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.issueTransfer(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "not found")
	}
}

func (a *API) getLink(w http.ResponseWriter, r *http.Request, id int64) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	l, err := a.links.Get(r.Context(), id)
	if err != nil || l.Organization != actor.Organization {
		writeError(w, r, http.StatusNotFound, "link not found")
		return
	}
	writeJSON(w, http.StatusOK, linkResponse{ShortLink: l, Mine: l.Owner == actor.Email})
}

func (a *API) updateLink(w http.ResponseWriter, r *http.Request, id int64) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	if _, err := a.auth.AuthorizeMutation(r.Context(), id, actor); err != nil {
		writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}
	var req updateLinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	l, err := a.links.UpdateDestination(r.Context(), id, req.Destination)
	if err != nil {
		var ce *link.CreationError
		if errors.As(err, &ce) {
			writeError(w, r, http.StatusBadRequest, ce.Message)
			return
		}
		if errors.Is(err, link.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "link not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "could not update link")
		return
	}
	_ = audit.LogEvent(r.Context(), "link.updated", map[string]any{
		"link_id":     l.ID,
		"destination": l.DestinationURL,
	})
	writeJSON(w, http.StatusOK, linkResponse{ShortLink: l, Mine: l.Owner == actor.Email})
}

func (a *API) deleteLink(w http.ResponseWriter, r *http.Request, id int64) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	l, err := a.auth.AuthorizeMutation(r.Context(), id, actor)
	if err != nil {
		if errors.Is(err, authz.ErrUnauthorized) {
			writeError(w, r, http.StatusForbidden, "forbidden")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "could not delete link")
		return
	}
	if err := a.links.Delete(r.Context(), id); err != nil {
		writeError(w, r, http.StatusInternalServerError, "could not delete link")
		return
	}
	a.stream.Publish(events.Event{
		Name:         events.LinkDeleted,
		LinkID:       l.ID,
		Organization: l.Organization,
		Actor:        actor.Email,
		Payload:      map[string]any{"shortpath": l.Shortpath},
	})
	_ = audit.LogEvent(r.Context(), "link.deleted", map[string]any{
		"link_id":   l.ID,
		"shortpath": l.Shortpath,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleFollow resolves a shortpath within the caller's organization and
// redirects to the destination.
func (a *API) handleFollow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	shortpath := strings.Trim(r.URL.Path, "/")
	if shortpath == "" {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	l, err := a.links.Resolve(r.Context(), actor.Organization, shortpath)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "no such go link")
		return
	}
	http.Redirect(w, r, l.DestinationURL, http.StatusFound)
}
