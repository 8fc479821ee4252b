// Package resolution coordinates a single "fetch this URL like a browser"
// request: it acquires a page, navigates, detects and resolves challenges,
// and assembles the Solution.
package resolution
