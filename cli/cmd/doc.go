// Package cmd implements the stache subcommands: render, check, tree, init,
// and repl.
//
// Global template settings (partial directories, pragmas, delimiters) reach
// the commands through [WithEngine].
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path to
	// the YAML configuration file.
	ConfigIdentifier = "config"
)
