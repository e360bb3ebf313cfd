package message

import (
	"strings"

	"github.com/hatch/messaging/internal/models"
)

// Message types.
const (
	TypeSMS   = "sms"
	TypeMMS   = "mms"
	TypeEmail = "email"
)

// Provider tags recorded on canonical records.
const (
	ProviderSMS   = "sms_provider"
	ProviderEmail = "email_provider"
)

// Mode controls how the validator treats the type field.
type Mode int

const (
	// ModeExplicit requires the type field; used for outbound sends.
	ModeExplicit Mode = iota
	// ModeInferred permits a missing type and infers it from the provider
	// correlation id on the payload; used for inbound deliveries.
	ModeInferred
)

// Validate classifies a raw payload and returns the resolved message type.
// It inspects only the payload, never storage. Checks run in a fixed order:
// field presence, then type validity, then inference.
func Validate(req models.MessageRequest, mode Mode) (string, error) {
	var missing []string
	if req.From == "" {
		missing = append(missing, "'from'")
	}
	if req.To == "" {
		missing = append(missing, "'to'")
	}
	if mode == ModeExplicit && req.Type == "" {
		missing = append(missing, "'type'")
	}
	if len(missing) > 0 {
		return "", newValidationError(MissingFields, "missing %s", strings.Join(missing, ", "))
	}

	if req.Type != "" {
		if !validType(req.Type) {
			return "", newValidationError(InvalidType, "invalid message type %q", req.Type)
		}
		return req.Type, nil
	}

	// Inbound delivery without an explicit type: the provider correlation id
	// tells us which channel it arrived on.
	switch {
	case req.XillioID != "":
		return TypeEmail, nil
	case req.MessagingProviderID != "":
		return TypeSMS, nil
	}

	return "", newValidationError(CannotInferType, "cannot infer message type: no provider correlation id present")
}

func validType(msgType string) bool {
	switch msgType {
	case TypeSMS, TypeMMS, TypeEmail:
		return true
	}
	return false
}

// ProviderFor maps a message type to the provider tag stored on the record:
// sms and mms belong to the SMS provider, email to the email provider.
func ProviderFor(msgType string) string {
	if msgType == TypeEmail {
		return ProviderEmail
	}
	return ProviderSMS
}
