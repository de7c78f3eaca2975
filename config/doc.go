// Package config holds the application configuration and its validation.
//
// Values are read from config/app.json and the environment with go-config,
// then checked with Validate before any component is built.
package config
