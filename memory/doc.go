// Package memory keeps bounded per-session conversation history in process.
//
// Each session retains its last N turns (default 5), oldest evicted first,
// and is dropped after an idle period (default 24h) by Sweep or the Run
// janitor. History is never persisted.
package memory
