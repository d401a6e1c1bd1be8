// Package httputil provides the HTTP plumbing shared by the backend client:
//
//   - [Retry]: retry with exponential backoff for transient failures
//   - [CheckStatus]: response status classification
//   - [NewClient]: an *http.Client with the default timeout
//
// Only errors wrapped in [RetryableError] are retried. [CheckStatus] marks
// 5xx responses and 429 as retryable; everything else fails immediately.
package httputil
