// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional config file. Settings are
// grouped per component and validated with struct tags before use.
package config
