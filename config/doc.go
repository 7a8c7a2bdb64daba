// Package config loads service configuration from a YAML file and
// EVENTSEARCH_-prefixed environment variables.
package config
