// Package session keeps per-user conversation state for the lead capture flow.
// Sessions live in process memory only; a restart drops every open conversation.
package session
