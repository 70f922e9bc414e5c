// Package report turns saved fetch results into what the CLI shows and
// exports: the posts summary with deltas against the previous fetch, the top
// list with rank movement, and tab separated exports.
//
// Backups of the summary and the top list are taken before each fetch so the
// next report has something to compare with.
package report
