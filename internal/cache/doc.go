// Package cache implements the bounded lyrics cache.
//
// [LyricsCache] maps a track ID to an [Entry]. An entry with nil Lyrics is a negative entry:
// the provider confirmed there are no lyrics, which is distinct from "never looked up" (a miss).
// Positive and negative entries each take one slot.
//
// When full, inserting evicts the least recently accessed entry. Access order lives in a
// doubly linked list next to the key map so every Get and Put is O(1).
package cache
