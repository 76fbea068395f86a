// Package main is the entry point of the viewer command line.
//
// Sessions live in a local SQLite database unless sync credentials are
// configured, in which case they live on the sync service.
//
// Configuration:
//   - Environment variables (VIEWER_*, LOG_LEVEL, LOG_DEV)
//   - An optional .env file in the working directory
//   - Saved credentials written by "viewer login"
//
// Usage:
//
//	# Create a session from a folder and look at it
//	viewer new --name trip ~/Pictures/trip
//	viewer show 0
//
//	# Rearrange it
//	viewer op 0 focus 3
//	viewer op 0 move 0
//
//	# Keep sessions on a sync service from now on
//	VIEWER_SYNC_PASSWORD=... viewer login https://sync.example
//
// Signals:
//   - SIGINT: cancels the running operation
package main
