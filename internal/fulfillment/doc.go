// Package fulfillment drives one license request artifact through the full
// workflow: submit the request, parse the server reply, build the rights
// document, download the content, classify it by signature, and finalize
// the output for its format.
//
// The workflow is an explicit state machine. Each state performs exactly one
// unit of work and either advances the job or fails it; callers observe
// every transition, so interrupted jobs leave an accurate status behind.
// All failures surface as a single terminal outcome; no error escapes a run.
package fulfillment
