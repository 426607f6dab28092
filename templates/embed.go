// Package templates embeds the server-rendered pages.
package templates

import "embed"

// FS holds every page and the shared layout.
//
//go:embed *.tmpl
var FS embed.FS
