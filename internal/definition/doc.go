// Package definition parses entry definition files: a front-matter header
// (YAML between "---" markers or TOML between "+++" markers) followed by
// free-form instruction text. The loader turns a directory of definitions
// into Agent entries with their schemas compiled once at load time.
package definition
