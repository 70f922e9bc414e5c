// Package imgur is the HTTP client for the imgur endpoints used to collect
// account statistics.
//
// Three endpoint families are used:
//
//   - /3/account/{user}/submissions/{page}/newest lists posts with views
//   - https://{user}.imgur.com/ajax/images lists image hashes page by page
//   - https://{user}.imgur.com/ajax/views returns views for a batch of hashes
//
// Every response is an envelope of {data, success, status}. A body that is
// not JSON is treated as an unsuccessful empty envelope, so callers only see
// typed errors from pkg/errors or decoded data.
//
// Requests carry the session cookie and a Referer of the page a browser
// would be on, and are paced by a ratelimit.Limiter:
//
//	client := imgur.NewClient(cfg.Imgur, log,
//		imgur.WithLimiter(ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)),
//		imgur.WithRetry(cfg.Retry))
//	me, err := client.Me(ctx)
package imgur
