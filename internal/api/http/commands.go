package http

import (
	"context"
	"net/http"
	"time"

	"github.com/mjlescano/playcha/internal/domain/resolution"
	"github.com/mjlescano/playcha/internal/providers/browser"
	"github.com/mjlescano/playcha/internal/shared/apperr"
	"github.com/mjlescano/playcha/internal/shared/types"
	"github.com/mjlescano/playcha/internal/shared/utils"
)

// dispatch normalizes req and runs its command
func (h *Handlers) dispatch(ctx context.Context, req *types.V1Request) (*types.V1Response, error) {
	if req.Cmd == "" {
		return nil, apperr.InvalidRequest("Request parameter 'cmd' is mandatory.")
	}
	if err := utils.ValidateSessionID(req.Session); err != nil {
		return nil, apperr.InvalidRequest("%s", err)
	}
	if req.Proxy == nil && h.defaultProxy != nil {
		proxy := *h.defaultProxy
		req.Proxy = &proxy
	}
	if req.MaxTimeout < 1 {
		req.MaxTimeout = types.DefaultMaxTimeout
	}

	switch req.Cmd {
	case types.CmdSessionsCreate:
		return h.sessionsCreate(ctx, req)
	case types.CmdSessionsList:
		return h.sessionsList()
	case types.CmdSessionsDestroy:
		return h.sessionsDestroy(req)
	case types.CmdRequestGet:
		if req.URL == "" {
			return nil, apperr.InvalidRequest("Request parameter 'url' is mandatory in 'request.get' command.")
		}
		if req.PostData != "" {
			return nil, apperr.InvalidRequest("Cannot use 'postData' when sending a GET request.")
		}
		return h.request(ctx, req, http.MethodGet)
	case types.CmdRequestPost:
		if req.URL == "" {
			return nil, apperr.InvalidRequest("Request parameter 'url' is mandatory in 'request.post' command.")
		}
		if req.PostData == "" {
			return nil, apperr.InvalidRequest("Request parameter 'postData' is mandatory in 'request.post' command.")
		}
		return h.request(ctx, req, http.MethodPost)
	}
	return nil, apperr.InvalidRequest("Request parameter 'cmd' = '%s' is invalid.", req.Cmd)
}

func (h *Handlers) sessionsCreate(ctx context.Context, req *types.V1Request) (*types.V1Response, error) {
	sess, fresh, err := h.sessions.Create(ctx, req.Session, toProxy(req.Proxy))
	if err != nil {
		return nil, err
	}
	message := "Session already exists."
	if fresh {
		message = "Session created successfully."
	}
	return &types.V1Response{Status: types.StatusOK, Message: message, Session: sess.ID}, nil
}

func (h *Handlers) sessionsList() (*types.V1Response, error) {
	return &types.V1Response{Status: types.StatusOK, Sessions: h.sessions.List()}, nil
}

func (h *Handlers) sessionsDestroy(req *types.V1Request) (*types.V1Response, error) {
	if req.Session == "" {
		return nil, apperr.InvalidRequest("Request parameter 'session' is mandatory for sessions.destroy.")
	}
	if !h.sessions.Destroy(req.Session) {
		return nil, apperr.InvalidRequest("The session doesn't exist.")
	}
	return &types.V1Response{Status: types.StatusOK, Message: "The session has been removed."}, nil
}

func (h *Handlers) request(ctx context.Context, req *types.V1Request, method string) (*types.V1Response, error) {
	if err := utils.ValidateTargetURL(req.URL); err != nil {
		return nil, apperr.InvalidRequest("%s", err)
	}

	r := resolution.Request{
		Method:       method,
		URL:          req.URL,
		PostData:     req.PostData,
		Cookies:      toCookieParams(req.Cookies),
		Proxy:        toProxy(req.Proxy),
		Timeout:      resolution.TimeoutFromMillis(req.MaxTimeout),
		SessionID:    req.Session,
		DisableMedia: req.DisableMedia,
		Screenshot:   req.ReturnScreenshot,
		OnlyCookies:  req.ReturnOnlyCookies,
	}
	if req.SessionTTLMinutes != nil && *req.SessionTTLMinutes > 0 {
		r.SessionTTL = time.Duration(*req.SessionTTLMinutes) * time.Minute
	}
	if req.WaitInSeconds > 0 {
		r.Wait = time.Duration(req.WaitInSeconds) * time.Second
	}

	res, err := h.resolver.Resolve(ctx, r)
	if err != nil {
		return nil, err
	}
	return &types.V1Response{Status: types.StatusOK, Message: res.Message, Solution: res.Solution}, nil
}

func toProxy(p *types.ProxyRequest) *browser.Proxy {
	if p == nil || p.URL == "" {
		return nil
	}
	return &browser.Proxy{URL: p.URL, Username: p.Username, Password: p.Password}
}

func toCookieParams(in []types.CookieParam) []browser.CookieParam {
	if len(in) == 0 {
		return nil
	}
	out := make([]browser.CookieParam, len(in))
	for i, c := range in {
		out[i] = browser.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			URL:      c.URL,
			Domain:   c.Domain,
			Path:     c.Path,
			SameSite: c.SameSite,
		}
		if c.Expires != nil {
			out[i].Expires = *c.Expires
		}
		if c.HTTPOnly != nil {
			out[i].HTTPOnly = *c.HTTPOnly
		}
		if c.Secure != nil {
			out[i].Secure = *c.Secure
		}
	}
	return out
}
