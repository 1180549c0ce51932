// Command coursesearch serves and queries course-scoped content search.
//
// Subcommands:
//
//	serve    run the HTTP server (JSON API, search page, metrics, MCP)
//	search   run one search and print the results as a table
//	migrate  apply pending schema migrations
//	seed     load a YAML fixture into the database
//
// Configuration is read from config.yaml (or --config) and COURSESEARCH_*
// environment variables. A .env file in the working directory is loaded first.
package main

import (
	"log/slog"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("coursesearch failed", "error", err)
		os.Exit(1)
	}
}
