package challenge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadTableEmptyPath(t *testing.T) {
	table, err := LoadTable("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTable(), table)
}

func TestLoadTableYAML(t *testing.T) {
	path := writeFile(t, "selectors.yaml", `
challenge_titles:
  - "Checking your browser"
challenge_selectors:
  - "#custom-challenge"
`)

	table, err := LoadTable(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Checking your browser"}, table.ChallengeTitles)
	assert.Equal(t, []string{"#custom-challenge"}, table.ChallengeSelectors)
	assert.Equal(t, DefaultTable().AccessDeniedTitles, table.AccessDeniedTitles)
	assert.Equal(t, DefaultTable().TurnstileSelectors, table.TurnstileSelectors)
}

func TestLoadTableTOML(t *testing.T) {
	path := writeFile(t, "selectors.toml", `
access_denied_titles = ["Forbidden"]
widget_hosts = ["captcha.example.com"]
`)

	table, err := LoadTable(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Forbidden"}, table.AccessDeniedTitles)
	assert.True(t, table.IsWidgetURL("https://captcha.example.com/frame"))
	assert.False(t, table.IsWidgetURL("https://challenges.cloudflare.com/frame"))
	assert.Equal(t, DefaultTable().ChallengeSelectors, table.ChallengeSelectors)
}

func TestLoadTableErrors(t *testing.T) {
	_, err := LoadTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadTable(writeFile(t, "selectors.json", `{}`))
	assert.ErrorContains(t, err, "unsupported")

	_, err = LoadTable(writeFile(t, "broken.toml", `challenge_titles = [`))
	assert.Error(t, err)
}

func TestTitleMatching(t *testing.T) {
	table := DefaultTable()

	assert.True(t, table.IsAccessDeniedTitle("Access denied | example.com used Cloudflare"))
	assert.False(t, table.IsAccessDeniedTitle("Why was access denied?"))
	assert.False(t, table.IsAccessDeniedTitle(""))

	assert.True(t, table.IsChallengeTitle("Einen Moment bitte..."))
	assert.False(t, table.IsChallengeTitle("Example Domain"))
}
