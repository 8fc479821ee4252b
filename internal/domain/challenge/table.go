package challenge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// WidgetHost serves the interactive challenge widget frames
const WidgetHost = "challenges.cloudflare.com"

// Table holds the titles and selectors detection is based on
type Table struct {
	AccessDeniedTitles      []string `yaml:"access_denied_titles" toml:"access_denied_titles"`
	AccessDeniedSelectors   []string `yaml:"access_denied_selectors" toml:"access_denied_selectors"`
	ChallengeTitles         []string `yaml:"challenge_titles" toml:"challenge_titles"`
	ChallengeTitleFragments []string `yaml:"challenge_title_fragments" toml:"challenge_title_fragments"`
	ChallengeSelectors      []string `yaml:"challenge_selectors" toml:"challenge_selectors"`
	TurnstileSelectors      []string `yaml:"turnstile_selectors" toml:"turnstile_selectors"`
	WidgetFrameSelectors    []string `yaml:"widget_frame_selectors" toml:"widget_frame_selectors"`
	WidgetHosts             []string `yaml:"widget_hosts" toml:"widget_hosts"`
}

// DefaultTable returns the built-in detection table
func DefaultTable() Table {
	return Table{
		AccessDeniedTitles: []string{
			"Access denied",
			"Attention Required! | Cloudflare",
		},
		AccessDeniedSelectors: []string{
			"div.cf-error-title span.cf-code-label span",
			"#cf-error-details div.cf-error-overview h1",
		},
		ChallengeTitles: []string{
			"Just a moment...",
			"DDoS-Guard",
		},
		// challenge titles are localized, the fragments catch most locales
		ChallengeTitleFragments: []string{
			"moment",
			"ddos",
		},
		ChallengeSelectors: []string{
			"#cf-challenge-running",
			".ray_id",
			".attack-box",
			"#cf-please-wait",
			"#challenge-spinner",
			"#trk_jschal_js",
			"#turnstile-wrapper",
			".lds-ring",
			"td.info #js_info",
			"div.vc div.text-box h2",
		},
		TurnstileSelectors: []string{
			"input[name='cf-turnstile-response']",
		},
		WidgetFrameSelectors: []string{
			`iframe[src*="` + WidgetHost + `"]`,
		},
		WidgetHosts: []string{WidgetHost},
	}
}

// LoadTable reads a table override from a .yaml, .yml or .toml file. Every
// non-empty list in the file replaces the matching default list.
func LoadTable(path string) (Table, error) {
	table := DefaultTable()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return table, fmt.Errorf("read selector table: %w", err)
	}

	var override Table
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &override)
	case ".toml":
		err = toml.Unmarshal(data, &override)
	default:
		return table, fmt.Errorf("unsupported selector table format %q", ext)
	}
	if err != nil {
		return table, fmt.Errorf("parse selector table %s: %w", path, err)
	}

	table.merge(override)
	return table, nil
}

func (t *Table) merge(o Table) {
	pick := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}
	pick(&t.AccessDeniedTitles, o.AccessDeniedTitles)
	pick(&t.AccessDeniedSelectors, o.AccessDeniedSelectors)
	pick(&t.ChallengeTitles, o.ChallengeTitles)
	pick(&t.ChallengeTitleFragments, o.ChallengeTitleFragments)
	pick(&t.ChallengeSelectors, o.ChallengeSelectors)
	pick(&t.TurnstileSelectors, o.TurnstileSelectors)
	pick(&t.WidgetFrameSelectors, o.WidgetFrameSelectors)
	pick(&t.WidgetHosts, o.WidgetHosts)
}

// IsChallengeTitle reports whether title names a challenge screen, either
// exactly (ignoring case) or through one of the keyword fragments.
func (t Table) IsChallengeTitle(title string) bool {
	if title == "" {
		return false
	}
	lower := strings.ToLower(title)
	for _, known := range t.ChallengeTitles {
		if lower == strings.ToLower(known) {
			return true
		}
	}
	for _, fragment := range t.ChallengeTitleFragments {
		if strings.Contains(lower, strings.ToLower(fragment)) {
			return true
		}
	}
	return false
}

// IsAccessDeniedTitle reports whether title starts with a ban phrase
func (t Table) IsAccessDeniedTitle(title string) bool {
	if title == "" {
		return false
	}
	for _, prefix := range t.AccessDeniedTitles {
		if strings.HasPrefix(title, prefix) {
			return true
		}
	}
	return false
}

// IsWidgetURL reports whether a frame URL points at a widget host
func (t Table) IsWidgetURL(url string) bool {
	for _, host := range t.WidgetHosts {
		if host != "" && strings.Contains(url, host) {
			return true
		}
	}
	return false
}
