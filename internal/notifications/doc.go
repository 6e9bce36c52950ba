// Package notifications delivers workflow events to an ntfy topic. When no
// topic is configured, or a notification category is disabled, events are
// silently dropped; notification failures never fail the workflow that
// produced them.
package notifications
