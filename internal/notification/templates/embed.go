package templates

import "embed"

// EmbeddedFS carries the default email scenarios, one <id>.tmpl per file.
//
//go:embed files/*.tmpl
var EmbeddedFS embed.FS
