// Package filestore is the content-addressed document store.
//
// Uploaded bytes are hashed with SHA-256 and kept once per digest under
// <dataDir>/files/<2 hex>/<2 hex>/<digest>. Every upload, including one whose
// content is already stored, gets its own metadata record. A blob is removed
// when the last record referencing its hash is deleted, or by an orphan sweep.
//
// The store assumes a single writer. Reads may run concurrently, but an
// upload that reuses a hash can race with the delete of that hash's last
// other reference, and the delete may remove the blob the upload is about to
// point at. Hosts that accept concurrent writers must serialize Upload,
// DeleteFile, ImportMetadata and the orphan sweep themselves.
package filestore
