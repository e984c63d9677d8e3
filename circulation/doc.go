// Package circulation defines the shared core types of the lending system:
// catalog items, patrons, loans, search projections and the error kinds
// that all components report.
//
// The types in this package are plain data holders built on scalars so that
// the storage engines, the search engine and the circulation ledger stay
// agnostic of each other's implementation.
package circulation
