// Package file loads kbingest configuration from the local filesystem.
//
// Settings come from a TOML file (default ~/.kbingest/config.toml).
// Credentials never live in that file: they are read from the environment
// after an optional .env file has been loaded into it.
package file
