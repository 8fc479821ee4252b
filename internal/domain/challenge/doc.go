// Package challenge recognises anti-bot challenge pages and drives them to
// completion.
//
// Detection is driven by a Table of titles and selectors. The default table
// covers Cloudflare and DDoS-Guard screens and can be overridden from a YAML
// or TOML file. The Resolver is a polling state machine that waits for a
// challenge to clear on its own and hands the page to a Solver only once an
// interactive widget shows up.
package challenge
