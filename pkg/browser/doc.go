// Package browser manages the shared Chrome instance behind the
// browsergate daemon and the isolated sessions running inside it.
//
// A Manager launches one browser process and owns its lifetime. Each
// session is a separate browser context with its own cookies, storage
// and cache, plus a single tab. The default session lives in the
// browser's default context, is created with the manager, and can
// never be closed. Callers address sessions by id and every operation
// resolves the session fresh from the registry, so a stale handle can
// never outlive a close.
//
// Page state is exposed through accessibility snapshots: a flat list
// of interesting elements, each assigned a ref like "@e7" that
// subsequent operations can pass wherever a selector is accepted.
package browser
