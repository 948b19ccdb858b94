// Package web embeds the HTML templates of the web-form front-end.
package web

import "embed"

//go:embed templates/*.html
var Content embed.FS
