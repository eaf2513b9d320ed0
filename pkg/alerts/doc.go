// Package alerts implements the officer-facing alert lifecycle: AI
// drafting, human approval, audio synthesis and publication to the
// alert stream. Nothing reaches students without an explicit approval.
package alerts
