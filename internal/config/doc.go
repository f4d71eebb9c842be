// Package config loads the JSON configuration consumed by gystd: listen
// addresses, logging, the voice-call vendor credential, narrative tuning and
// the drivers behind sessions and engagement events.
package config
