package medlog

import "embed"

// EmbeddedAssets contains static assets shipped with the binary:
// style.css and medlog.js
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
