// Package http turns a logical API call (endpoint plus optional body) into a
// classified response, retrying transient server failures.
//
// Classification
//   - 2xx is success.
//   - 500, 503 and 429 are retryable. The set is closed; any new code is terminal.
//   - Any other status in 100-599 is terminal and surfaces as a server error.
//   - Anything outside 100-599 is a malformed response.
//
// Retries
//   - Controlled via Builder.WithMaxRetries. A call makes at most maxRetries+1
//     network attempts and then fails with a max_retries error.
//   - Transport failures, per-attempt timeouts and interceptor errors are never
//     retried.
//   - Every attempt re-sends the same envelope, so the Idempotency-Key and the
//     body bytes are identical across attempts.
//
// Backoff Strategy
//   - The delay starts at one unit and doubles before each wait.
//   - Jitter is drawn uniformly from [0, delay/4] whole units.
//   - The unit defaults to one millisecond (Builder.WithBackoffUnit).
//   - Waiting honours context cancellation; a cancelled call returns ctx.Err().
//
// Notes
//   - Network reachability is reported in logs and spans but does not gate
//     retries.
//   - Request and response interceptors run on every attempt.
package http
