/*
Package browser defines the automation capability the challenge layers run on.

# Interfaces

  - Driver launches a Browser, optionally behind a Proxy
  - Browser owns pages and is closed as a unit
  - Page navigates, inspects the DOM, evaluates scripts, intercepts requests
    through routes, reads and writes cookies and takes screenshots

Backends live in subpackages: rodbrowser (go-rod) and cdpbrowser (chromedp).
drivers selects one by configuration name and browsertest provides an
in-memory fake for tests.

# Routes

Route patterns are doublestar globs matched against the full request URL, so
a pattern of a double star, a slash and a star matches every request. A
pattern naming an absolute URL also matches the browser's normalized form of
it. Handlers must either continue, override or
abort the route they receive.

# Init scripts

Scripts are JavaScript function expressions such as "() => 1". DeferredPage
buffers them for backends that can only inject on the next navigation;
ValidateScript rejects malformed ones before they reach the browser.
*/
package browser
