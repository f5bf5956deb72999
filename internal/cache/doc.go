// Package cache implements the disk-backed response cache. Every entry is a
// single file named by its key inside one cache directory, holding a JSON
// envelope {data, timestamp, expiryTime}. Writes go through a temp file +
// rename so readers never observe a partial entry, and every failure degrades
// to a miss or a no-op that is reported through Hooks instead of the caller.
package cache
