package captcha

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// openShadowRootsScript forces every shadow root open so the widget inside
// closed roots can be located.
const openShadowRootsScript = `() => {
  const attach = Element.prototype.attachShadow;
  if (attach.__playcha) {
    return;
  }
  const patched = function (init) {
    return attach.call(this, Object.assign({}, init, { mode: "open" }));
  };
  patched.__playcha = true;
  Element.prototype.attachShadow = patched;
}`

// locateWidgetScript returns [x, y, width, height] of the widget frame or
// container, searching through shadow roots, or null.
const locateWidgetScript = `() => {
  const find = (root) => {
    const frame = root.querySelector('iframe[src*="challenges.cloudflare.com"]');
    if (frame) {
      return frame;
    }
    for (const el of root.querySelectorAll("*")) {
      if (el.shadowRoot) {
        const found = find(el.shadowRoot);
        if (found) {
          return found;
        }
      }
    }
    return null;
  };
  const el = find(document) || document.querySelector(".cf-turnstile, #turnstile-wrapper");
  if (!el) {
    return null;
  }
  const r = el.getBoundingClientRect();
  if (r.width === 0 || r.height === 0) {
    return null;
  }
  return [r.x, r.y, r.width, r.height];
}`

// readTokenScript returns the Turnstile token once the widget produced one
const readTokenScript = `() => {
  const el = document.querySelector('input[name="cf-turnstile-response"]');
  return el && el.value ? el.value : null;
}`

// hookTurnstileScript captures the parameters pages pass to
// turnstile.render, which API solvers need to submit the task.
const hookTurnstileScript = `() => {
  if (window.__playchaHooked) {
    return;
  }
  window.__playchaHooked = true;
  const capture = (ts) => {
    if (!ts || typeof ts.render !== "function" || ts.__playcha) {
      return ts;
    }
    const render = ts.render;
    ts.render = function (container, params) {
      const p = params || {};
      window.__playchaTurnstile = {
        sitekey: p.sitekey,
        action: p.action,
        cData: p.cData,
        chlPageData: p.chlPageData,
        callback: p.callback,
      };
      return render.apply(this, arguments);
    };
    ts.__playcha = true;
    return ts;
  };
  let current = capture(window.turnstile);
  Object.defineProperty(window, "turnstile", {
    configurable: true,
    get() {
      return current;
    },
    set(v) {
      current = capture(v);
    },
  });
}`

// readTurnstileParamsScript returns the captured render parameters or null
const readTurnstileParamsScript = `() => {
  const t = window.__playchaTurnstile;
  if (!t) {
    return null;
  }
  return {
    sitekey: t.sitekey || "",
    action: t.action || "",
    cData: t.cData || "",
    chlPageData: t.chlPageData || "",
  };
}`

const userAgentScript = `() => navigator.userAgent`

// injectTokenScript writes token into the response inputs and fires the
// captured callback.
func injectTokenScript(token string) (string, error) {
	quoted, err := sonic.MarshalString(token)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`() => {
  const token = %s;
  document
    .querySelectorAll('input[name="cf-turnstile-response"], textarea[name="g-recaptcha-response"]')
    .forEach((el) => {
      el.value = token;
    });
  const t = window.__playchaTurnstile;
  if (t && typeof t.callback === "function") {
    t.callback(token);
  }
  return true;
}`, quoted), nil
}
