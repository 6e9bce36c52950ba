// Package config loads, validates, and normalizes the bindery configuration
// file. Configuration is TOML, found at ~/.config/bindery/config.toml by
// default, with all path fields tilde-expanded to absolute paths.
package config
