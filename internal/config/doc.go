// Package config handles configuration loading for the sitever binaries.
//
// # Overview
//
// The server (sitever serve) reads YAML; the update monitor client
// (sitever-check) reads TOML. Both expand ${VAR_NAME} references from the
// environment before parsing, and both validate after parsing.
//
// # Server Configuration
//
// Default location: $SITEVER_CONFIG, else ~/.config/sitever/server.yaml.
//
//	server:
//	  http_addr: "localhost:3000"
//
//	store:
//	  driver: "file"             # file or sqlite
//	  path: "./public/version.json"
//	  watch: true                # file driver: reload on change
//
//	site:
//	  static_dir: "./public"     # served at /, empty disables
//
//	cors:
//	  allowed_origins:
//	    - "http://localhost:5500"
//
//	tailscale:
//	  enabled: false
//	  hostname: "sitever"
//	  auth_key: "${TS_AUTHKEY}"
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Client Configuration
//
// Default location: $SITEVER_CHECK_CONFIG, else ~/.config/sitever/check.toml.
//
//	[monitor]
//	api_endpoint = "http://localhost:3000/api/version/check"
//	show_notification = true
//	auto_reload_delay = "8s"
//	show_delay = "500ms"
//	debug = false
//
//	[page]
//	url = "http://localhost:3000/"
//
//	[storage]
//	state_path = "${HOME}/.local/share/sitever/client.db"
//	cache_dir = "${HOME}/.cache/sitever"
//
// Durations use Go's time.ParseDuration syntax.
package config
