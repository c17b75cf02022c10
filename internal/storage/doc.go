// Package storage persists members, prayer requests, lesson progress,
// attendance and events.
//
// Drivers share one contract (Store). The SQL drivers run embedded
// migrations on open; the memory driver keeps everything in maps.
package storage
