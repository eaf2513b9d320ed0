// Package archive is the bbolt-backed store for published alerts,
// alert audio and the audit trail. The case graph itself is never
// persisted.
package archive
