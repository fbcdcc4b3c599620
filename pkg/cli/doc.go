// Package cli implements the command-line interface of the portal.
//
// # Overview
//
// The portal CLI runs the server and exposes its rendering core for offline
// use: rendering a single page without a browser, checking that a client
// build produced a usable asset manifest, and checking that a served page
// hydrates without a mismatch.
//
// # Commands
//
// serve - Run the portal server:
//
//	portal serve [--port 3000] [--static-dir ./dist] [--mode development]
//
// Flags mirror the environment variables documented in pkg/config and take
// precedence over them.
//
// render - Render one page to stdout:
//
//	portal render --route /todos [--session abc123] [--format html|json]
//
// Assembles the bootstrap payload against the configured upstreams and
// renders the full HTML document, or prints just the payload with json.
// Exits non-zero when the page rendered as an error.
//
// manifest - Resolve the client build's entry assets:
//
//	portal manifest [--static-dir ./dist] [--format yaml|json]
//
// Exits non-zero with a descriptive error when the manifest is missing,
// malformed, or has no primary script.
//
// hydrate - Check a served page against the client tree:
//
//	portal hydrate --url http://localhost:3000 --route /todos [--format yaml|json]
//
// Prints whether the tree attached to the server markup, where its state
// came from and which datasets were re-primed. Exits non-zero on a mismatch.
//
// # Global Flags
//
//	--config       Config file (YAML or JSON), also PORTAL_CONFIG
//	--log-level    Log level: debug, info, warn, error, also LOG_LEVEL
//	--help, -h     Show command help
//	--version, -v  Show version information
//
// render, manifest and hydrate also take --output, -o (default stdout) and
// --format, -t.
package cli
