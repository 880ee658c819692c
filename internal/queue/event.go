// Package queue defines message payloads exchanged over the message broker
// and the background consumer that drains them.
package queue

// EmailQueueName is the durable queue outbound mail events are published
// to and consumed from.
const EmailQueueName = "email.send"

// EmailEvent is published whenever the backend wants an email delivered:
// verification codes, password-reset codes, invitations. Delivery is
// best-effort; the flow that issued the credential has already committed
// by the time this event is published.
type EmailEvent struct {
	TenantID    string `json:"tenant_id"`
	TenantName  string `json:"tenant_name"`
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	Kind        string `json:"kind"` // verify | reset | invite
	PublishedAt string `json:"published_at"`
}
