package data

import "embed"

// ExamplesFS embeds the demo .sms scripts served by GET /api/examples and
// used as fixtures by the compiler's own integration tests.
//
//go:embed examples
var ExamplesFS embed.FS
