package challenge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHarvestToken(t *testing.T) {
	html := `<html><body><form>
<div class="cf-turnstile"><input type="hidden" name="cf-turnstile-response" value="0.abc-token"></div>
</form></body></html>`
	assert.Equal(t, "0.abc-token", HarvestToken(html))
}

func TestHarvestTokenMissing(t *testing.T) {
	assert.Empty(t, HarvestToken(`<html><body><p>hello</p></body></html>`))
	assert.Empty(t, HarvestToken(""))
}
