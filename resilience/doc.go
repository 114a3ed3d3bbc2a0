// Package resilience bounds the repository calls made while resolving
// transformations.
//
// The primitives are small and composable:
//
//   - Timeout caps how long a repository query may run.
//   - CircuitBreaker stops service logins after repeated failures.
//   - Retry re-attempts transient login failures with backoff.
//   - Bulkhead caps the number of open service sessions.
//   - RateLimiter throttles manual cache invalidation.
//
// Executor chains the ones a call site needs:
//
//	login := resilience.NewExecutor(
//		resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})),
//		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3})),
//	)
//	err := login.Execute(ctx, func(ctx context.Context) error {
//		sess, err = repo.Login(ctx, creds)
//		return err
//	})
package resilience
