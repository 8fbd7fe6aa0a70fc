// Package domain defines the core business types for the lead
// automation pipeline.
//
// Types in this package are pure value objects with no behavior beyond
// derived-state helpers, no database dependencies, and no HTTP concerns.
// They are the shared language between the CRM, sourcing, sync, and
// personalization layers.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - Validation and derived-state methods are allowed (pure functions
//     on the type)
//   - Constants and enums belong here
package domain
