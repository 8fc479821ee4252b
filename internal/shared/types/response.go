package types

// Response status values
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// V1Response is the envelope of every /v1 reply
type V1Response struct {
	Status         string    `json:"status"`
	Message        string    `json:"message"`
	Solution       *Solution `json:"solution,omitempty"`
	Session        string    `json:"session,omitempty"`
	Sessions       []string  `json:"sessions,omitzero"`
	StartTimestamp int64     `json:"startTimestamp"`
	EndTimestamp   int64     `json:"endTimestamp"`
	Version        string    `json:"version"`
}

// Solution is the outcome of a request.get or request.post command
type Solution struct {
	URL            string            `json:"url"`
	Status         int               `json:"status"`
	Headers        map[string]string `json:"headers,omitzero"`
	Response       *string           `json:"response,omitempty"`
	Cookies        []Cookie          `json:"cookies"`
	UserAgent      string            `json:"userAgent"`
	Screenshot     string            `json:"screenshot,omitempty"`
	TurnstileToken string            `json:"turnstile_token,omitempty"`
}

// Cookie is a cookie read back from the browsing context
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	Size     int     `json:"size,omitempty"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	Session  bool    `json:"session"`
	SameSite string  `json:"sameSite,omitempty"`
}

// IndexResponse is served on GET /
type IndexResponse struct {
	Msg       string `json:"msg"`
	Version   string `json:"version"`
	UserAgent string `json:"userAgent"`
}

// HealthResponse is served on GET /health
type HealthResponse struct {
	Status string `json:"status"`
}
