// Package drive imports session videos from Google Drive into the local
// cache and registers them as assets.
//
// Listing, metadata lookups and downloads go through the transfer retry
// policy. An imported asset is recorded as downloading first and flips to
// ready only once the file is complete on disk, so a crashed import never
// leaves a ready asset pointing at a partial file.
package drive
