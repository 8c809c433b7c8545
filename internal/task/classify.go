package task

// Outcome is the result of a single dispatch attempt, as classified from
// the outbound HTTP round trip (or its absence, on transport failure).
type Outcome string

const (
	// OutcomeCompleted: the target accepted the delivery. Only a 200
	// response produces this outcome; the task moves to completed and is
	// never attempted again.
	OutcomeCompleted Outcome = "completed"

	// OutcomeRetry: a transient failure. The task is re-armed with a new
	// due_at computed from its backoff policy, provided it has attempts
	// remaining; otherwise it is demoted to OutcomeFailed by the caller.
	OutcomeRetry Outcome = "retry"

	// OutcomeFailed: a permanent failure. The task moves to failed and is
	// never attempted again.
	OutcomeFailed Outcome = "failed"
)

// ClassifyStatusCode maps an observed HTTP response status code to a
// dispatch outcome, per the response classification table:
//
//	200            -> completed
//	500 <= c < 600 -> retry    (transient: the target failed to handle it)
//	otherwise      -> failed   (permanent: anything the target returned that
//	                            isn't exactly 200 or a 5xx is treated as a
//	                            definitive, non-retryable answer, including
//	                            1xx and other out-of-range codes)
func ClassifyStatusCode(code int) Outcome {
	switch {
	case code == 200:
		return OutcomeCompleted
	case code >= 500 && code < 600:
		return OutcomeRetry
	default:
		return OutcomeFailed
	}
}

// ClassifyTransportError classifies a failure to complete the HTTP round
// trip at all — connection refused, DNS failure, TLS handshake failure,
// timeout, or redirect-chain exhaustion. These are always transient: the
// target may be temporarily unreachable, so the attempt is retried rather
// than failed outright.
func ClassifyTransportError(err error) Outcome {
	if err == nil {
		return OutcomeCompleted
	}
	return OutcomeRetry
}
