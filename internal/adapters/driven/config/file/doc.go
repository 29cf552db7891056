// Package file loads kbase configuration from the local filesystem.
//
// ConfigStore reads and writes the TOML config file using dot-notation keys.
// LoadSettings layers an optional .env file and the process environment on
// top of the file and produces the immutable domain.Settings.
package file
