// Package fetch runs fetch sessions against imgur.
//
// A Driver pages through one PageSource in rounds, paces itself between
// pages, backs off when a full fetch keeps finding data, and saves what the
// source collected unless the session was cancelled. PostSource walks the
// post listing; ImageSource walks the image listing and resolves views in
// batches. Runner combines them into the full and refresh fetches.
//
// Page failures are never retried: a failed page ends paging as if the data
// had run out, and whatever was collected is saved.
package fetch
