// Package config handles loading and parsing skeind configuration files.
//
// # Overview
//
// This package reads skeind's TOML configuration to discover the daemon's
// Redis endpoint and log file locations. skein uses a minimal subset of
// the full daemon configuration, only extracting fields needed for
// monitoring.
//
// # Resolution
//
//  1. An explicit path (from the -config flag) is used when given
//  2. Otherwise, ~/.config/skeind/config.toml (default)
//  3. A missing file is not an error; defaults apply
//
// # Defaults
//
//   - Config file: ~/.config/skeind/config.toml
//   - Redis endpoint: 127.0.0.1:6379
//   - Log directory: ~/.local/share/skeind/logs
//   - Mode logs: <log_dir>/client.log, <log_dir>/relay.log
//   - Expected hops: 3
//   - History limit: 2000 entries per mode
//
// Example skeind config.toml:
//
//	log_dir = "~/.local/share/skeind/logs"
//	redis_addr = "127.0.0.1:6379"
//	expected_hops = 3
//	history_limit = 2000
//
// # Path Handling
//
//   - Absolute paths: Used as-is ("/var/log/skeind")
//   - Tilde paths: Expanded to the home directory ("~/.config/skeind")
//   - All returned paths are absolute
//
// skein should work immediately on a system with skeind installed in the
// default location, while an alternate installation only needs -config.
package config
