// Package config holds the darkthread configuration: the flat Config
// populated from command-line flags, its defaults and validation, the
// optional YAML site file (.darkthread) with per-host cookies and
// headers, and the XDG directories used for persistent data.
package config
