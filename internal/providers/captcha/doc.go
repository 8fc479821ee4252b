// Package captcha implements the challenge solving capability.
//
// A Solver is entered before the first navigation so that the page scripts
// it depends on are in place, asked to Solve once an interactive widget is
// showing, and exited when the request ends. Two families exist: the click
// solver, which presses the widget checkbox like a user would, and API
// solvers that hand the Turnstile parameters to a paid solving service and
// inject the returned token.
//
// The Registry picks the variant named by configuration.
package captcha
