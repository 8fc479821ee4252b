package rodbrowser

import (
	"github.com/go-rod/rod/lib/proto"
	"github.com/mjlescano/playcha/internal/providers/browser"
)

func fromNetworkCookies(in []*proto.NetworkCookie) []browser.Cookie {
	out := make([]browser.Cookie, 0, len(in))
	for _, c := range in {
		out = append(out, browser.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			Size:     c.Size,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			Session:  c.Session,
			SameSite: string(c.SameSite),
		})
	}
	return out
}

func toCookieParams(in []browser.CookieParam) []*proto.NetworkCookieParam {
	out := make([]*proto.NetworkCookieParam, 0, len(in))
	for _, c := range in {
		out = append(out, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			URL:      c.URL,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: proto.NetworkCookieSameSite(c.SameSite),
			Expires:  proto.TimeSinceEpoch(c.Expires),
		})
	}
	return out
}
