// Package web serves the embedded browser chat client. The client keeps
// the conversation log and the stored API key locally and talks to the
// REST API; this package is static asset plumbing only.
package web

import "embed"

// StaticFS holds the embedded browser client (HTML, CSS, JS).
//
//go:embed static/*
var StaticFS embed.FS
