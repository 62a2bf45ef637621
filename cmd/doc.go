// Package cmd implements the command-line interface for ckv. It provides
// a hierarchical command structure with operations for running the
// server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - ckv: Commands for facade operations (get, set, remove, findKeys,
//     getSub, setSub) plus a perf testing tool
//   - serve: Commands for starting and configuring the ckv server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See ckv -help for a list of all commands.
package cmd
