// Package synergy is a rate-limited, retrying client for the Synergy
// basketball API.
//
// Every call goes through Client.Get, which never returns a Go error for
// ordinary HTTP or network conditions. Instead it returns a Response whose
// Outcome classifies what happened:
//
//	2xx            Success (body decoded as JSON)
//	429            RateLimited, retried after (attempt+1) * BackoffBase
//	5xx            ServerError, retried after ServerErrorDelay
//	network error  TransientNetwork, retried after ServerErrorDelay
//	bad JSON       MalformedPayload, retried after ServerErrorDelay
//	401/403/404    Unauthorized / Forbidden / NotFound, never retried
//	other 4xx      ClientError, never retried
//
// Attempts are bounded by MaxRetries and there is no sleep after the final
// attempt. The status and error of the most recent call stay available via
// LastStatus and LastError so callers can tell "no data" apart from
// "forbidden".
//
// A rate.Limiter paces logical calls (retries are paced by backoff alone).
//
// The only fatal condition is constructing a client without a credential,
// which returns ErrMissingCredential.
package synergy
