// Package transform resolves thumbnail transformation names to definitions
// stored in the content repository.
//
// A name such as "#small" is resolved once with a JCR-SQL2 query run in a
// short-lived service session. The resulting path, or its confirmed absence,
// is kept in a cache.NameCache. Callers adapt the cached path into a
// Transformation through their own session, so read access is checked on every
// lookup while the query runs once per name.
//
// The cache is cleared wholesale when a transformation resource changes and on
// a periodic tick:
//
//	svc, err := transform.NewService(transform.ServiceConfig{Opener: serviceUser})
//	if err != nil {
//		return err
//	}
//	if err := svc.Bind(bus, scheduler, schedule.DefaultSpec); err != nil {
//		return err
//	}
//	t, ok, err := svc.Transformation(ctx, callerSession, "#small")
package transform
