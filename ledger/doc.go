// Package ledger orchestrates checkout and check-in across the catalog
// store, the item-side loan index and the patron registry.
//
// Both protocols apply their writes as a fixed sequence of independent
// statements, not as one transaction. Success requires every step to
// succeed; a failed step aborts the remaining ones and is reported to the
// caller, but steps already applied are NOT rolled back. This weak
// consistency is a deliberate, documented policy: after a partial failure
// an item can be marked unavailable with no matching loan record until a
// later checkout of the same item repairs the state. Inspect surfaces such
// damage.
package ledger
