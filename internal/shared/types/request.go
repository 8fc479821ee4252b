package types

// Command names accepted by POST /v1
const (
	CmdSessionsCreate  = "sessions.create"
	CmdSessionsList    = "sessions.list"
	CmdSessionsDestroy = "sessions.destroy"
	CmdRequestGet      = "request.get"
	CmdRequestPost     = "request.post"
)

// DefaultMaxTimeout is used when maxTimeout is missing or below 1 (milliseconds)
const DefaultMaxTimeout = 60000

// V1Request is the body of POST /v1
type V1Request struct {
	Cmd               string        `json:"cmd"`
	URL               string        `json:"url,omitempty"`
	PostData          string        `json:"postData,omitempty"`
	Session           string        `json:"session,omitempty"`
	SessionTTLMinutes *int          `json:"session_ttl_minutes,omitempty"`
	MaxTimeout        int           `json:"maxTimeout,omitempty"`
	Cookies           []CookieParam `json:"cookies,omitempty"`
	ReturnOnlyCookies bool          `json:"returnOnlyCookies,omitempty"`
	ReturnScreenshot  bool          `json:"returnScreenshot,omitempty"`
	Proxy             *ProxyRequest `json:"proxy,omitempty"`
	DisableMedia      bool          `json:"disableMedia,omitempty"`
	WaitInSeconds     int           `json:"waitInSeconds,omitempty"`
}

// ProxyRequest describes an upstream proxy
type ProxyRequest struct {
	URL      string `json:"url"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// CookieParam is a cookie to inject into the browsing context.
// Either URL or Domain should be set; when both are empty the target URL is used.
type CookieParam struct {
	Name     string   `json:"name"`
	Value    string   `json:"value"`
	URL      string   `json:"url,omitempty"`
	Domain   string   `json:"domain,omitempty"`
	Path     string   `json:"path,omitempty"`
	Expires  *float64 `json:"expires,omitempty"`
	HTTPOnly *bool    `json:"httpOnly,omitempty"`
	Secure   *bool    `json:"secure,omitempty"`
	SameSite string   `json:"sameSite,omitempty"`
}
