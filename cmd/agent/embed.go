package main

import _ "embed"

// embeddedConfig holds YAML configuration baked in at build time. It sits
// between the built-in defaults and any external config file. Build scripts
// may overwrite embed_config.yaml before compiling a site-specific binary.
//
//go:embed embed_config.yaml
var embeddedConfig []byte
