package models

// MessageRequest is the payload accepted by the inbound and outbound message
// endpoints. Inbound deliveries may omit type, in which case it is inferred
// from the provider correlation id present on the payload.
type MessageRequest struct {
	From                string   `json:"from"`
	To                  string   `json:"to"`
	Type                string   `json:"type,omitempty"`
	MessagingProviderID string   `json:"messaging_provider_id,omitempty"`
	XillioID            string   `json:"xillio_id,omitempty"`
	Body                string   `json:"body"`
	Attachments         []string `json:"attachments,omitempty"`
	Timestamp           string   `json:"timestamp"`
}

// DeliveryPayload is the canonical record in wire form: the JSON body POSTed
// to the provider endpoint. Timestamp is serialized back to RFC 3339.
type DeliveryPayload struct {
	Type              string   `json:"type"`
	From              string   `json:"from"`
	To                string   `json:"to"`
	Body              string   `json:"body"`
	Attachments       []string `json:"attachments,omitempty"`
	Timestamp         string   `json:"timestamp"`
	Provider          string   `json:"provider"`
	ProviderMessageID string   `json:"provider_message_id"`
	Sender            int64    `json:"sender"`
	Receiver          int64    `json:"receiver"`
	Conversation      int64    `json:"conversation"`
}

// DispatchJob is the envelope carried on the dispatch queue. Attempt counts
// completed delivery attempts for this message; the worker increments it on
// every reschedule.
type DispatchJob struct {
	Payload     DeliveryPayload `json:"payload"`
	ProviderURL string          `json:"provider_url"`
	Attempt     int             `json:"attempt"`
}
