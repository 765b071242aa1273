// Package api is the HTTP transport surface of the visibility engine.
//
// Every route resolves the caller to an immutable principal before any
// policy decision runs, then delegates to the listing, search, bulk and
// asset services. Unauthorized reads are indistinguishable from missing
// objects: both return 404 so that object ids cannot be enumerated by
// probing. Writes return 403 on a policy denial.
package api
