// Package cmd implements the command-line interface for authflow.
//
// This package provides the following commands:
//   - login: Run an interactive browser-based authorization flow
//   - userinfo: Fetch the user profile for an existing access token
//   - version: Display version information
package cmd
