// Package request turns abstract request descriptors into classified results.
// Every call is cache-aside: the canonical URL is hashed into a cache key, a
// fresh cache entry short-circuits the network, and a successful decode
// repopulates the cache. Failures surface as Error values whose Kind follows
// a fixed, exhaustive taxonomy; cache failures never surface at all.
package request
