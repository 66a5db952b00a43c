// Package config loads, normalizes, and validates downsort configuration.
//
// It supplies the built-in category table and ignore rules, expands user
// paths (including tilde shortcuts), reads TOML files, and honours the
// DOWNSORT_WATCH_DIR environment override. The Config value is built once at
// startup and handed to the daemon; nothing downstream mutates it.
package config
