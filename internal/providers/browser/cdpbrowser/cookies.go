package cdpbrowser

import (
	"math"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/mjlescano/playcha/internal/providers/browser"
)

func fromNetworkCookies(in []*network.Cookie) []browser.Cookie {
	out := make([]browser.Cookie, 0, len(in))
	for _, c := range in {
		out = append(out, browser.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			Size:     int(c.Size),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			Session:  c.Session,
			SameSite: c.SameSite.String(),
		})
	}
	return out
}

func toCookieParams(in []browser.CookieParam) []*network.CookieParam {
	out := make([]*network.CookieParam, 0, len(in))
	for _, c := range in {
		param := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			URL:      c.URL,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: network.CookieSameSite(c.SameSite),
		}
		if c.Expires > 0 {
			sec, frac := math.Modf(c.Expires)
			t := cdp.TimeSinceEpoch(time.Unix(int64(sec), int64(frac*1e9)))
			param.Expires = &t
		}
		out = append(out, param)
	}
	return out
}
