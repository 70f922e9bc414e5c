// Package stats holds the per-scope view bookkeeping of a fetch session: the
// score ledger of every seen image, the running view sum, the bounded top
// list and the file type table.
//
// Components are created from a Session, loaded with Init, fed with AddMany
// while pages arrive and written back with Save. Nothing is persisted when the
// session's CancelFlag is set.
package stats
