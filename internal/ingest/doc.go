// Package ingest crawls schedules and play-by-play from the Synergy API
// into the local cache.
//
// A run has three ordered phases, each reported through a ProgressFunc:
//
//  1. schedule: page through the season's games (per team or all), keep
//     concluded games and upsert them
//  2. events: for every game linked to a video, replace its plays with a
//     fresh event listing
//  3. index: embed the replaced plays and upsert them into the vector index
//
// Failures of a single page or game are logged, counted and skipped. Only
// storage failures abort a run.
package ingest
