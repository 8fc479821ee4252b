package rodbrowser

import (
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/mjlescano/playcha/internal/providers/browser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromNetworkCookies(t *testing.T) {
	got := fromNetworkCookies([]*proto.NetworkCookie{{
		Name:     "cf_clearance",
		Value:    "abc",
		Domain:   ".example.com",
		Path:     "/",
		Expires:  1700000000,
		Size:     15,
		HTTPOnly: true,
		Secure:   true,
		SameSite: proto.NetworkCookieSameSiteNone,
	}})

	require.Len(t, got, 1)
	assert.Equal(t, browser.Cookie{
		Name:     "cf_clearance",
		Value:    "abc",
		Domain:   ".example.com",
		Path:     "/",
		Expires:  1700000000,
		Size:     15,
		HTTPOnly: true,
		Secure:   true,
		SameSite: "None",
	}, got[0])
}

func TestToCookieParams(t *testing.T) {
	got := toCookieParams([]browser.CookieParam{{
		Name:     "session",
		Value:    "xyz",
		URL:      "https://example.com",
		SameSite: "Lax",
		Expires:  42,
	}})

	require.Len(t, got, 1)
	assert.Equal(t, "https://example.com", got[0].URL)
	assert.Equal(t, proto.NetworkCookieSameSiteLax, got[0].SameSite)
	assert.Equal(t, proto.TimeSinceEpoch(42), got[0].Expires)
}

func TestLauncherFlags(t *testing.T) {
	d := &Driver{opts: Options{Headless: true, BinPath: "/opt/chrome"}}

	l := d.launcher(&browser.Proxy{URL: "http://u:p@proxy.local:8080"})

	assert.Equal(t, "http://proxy.local:8080", l.Get("proxy-server"))
	assert.Equal(t, "AutomationControlled", l.Get("disable-blink-features"))
	assert.True(t, l.Has("headless"))
}
