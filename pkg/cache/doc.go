// Package cache implements the shared edge cache for proxied API responses.
//
// Responses are addressed by Key (method, stripped path, raw query) and
// stored with the Cache-Control policy forced by Cacheable. Two stores are
// provided: MemoryStore for a single process and SQLiteStore for a
// persistent cache that survives restarts. Both expire entries passively;
// a Pruner can reclaim the space held by stale rows on a cron schedule.
//
// Basic usage:
//
//	store := cache.NewMemoryStore(10000)
//	key := cache.NewKey(r.Method, "/discover/tv", r.URL.RawQuery)
//	if entry, ok, _ := store.Get(ctx, key); ok {
//		entry.Response.Write(w)
//	}
package cache
