// Package templates embeds the page templates rendered by the Fiber html
// engine. View names are paths relative to this directory without the
// .html extension, e.g. "auth/login".
package templates

import "embed"

//go:embed error.html layouts auth home admin teacher student
var FS embed.FS
