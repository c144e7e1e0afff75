package notion

// WebhookResource identifies the page or database an event refers to.
type WebhookResource struct {
	ID string `json:"id"`
}

// WebhookEvent is one event in a webhook delivery, such as
// "page.created" or "page.updated".
type WebhookEvent struct {
	Type     string          `json:"type"`
	Resource WebhookResource `json:"resource"`
}

// WebhookPayload is the body Notion posts to the webhook endpoint.
// VerificationToken is only set on the one-time subscription challenge,
// which must be acknowledged without further processing.
type WebhookPayload struct {
	VerificationToken string         `json:"verification_token,omitempty"`
	Events            []WebhookEvent `json:"events"`
}
