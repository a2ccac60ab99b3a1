// Package dashboard provides the embedded "running" page served by the
// liveness server.
//
// The page is compiled into the binary so the service ships as a single
// executable.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the running page.
//
//	assets/
//	  index.html    - static page; {{.Title}} and {{.Monitored}} are substituted
//
//go:embed assets/*
var Assets embed.FS
