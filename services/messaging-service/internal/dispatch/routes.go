package dispatch

import (
	"github.com/spf13/viper"

	"github.com/hatch/messaging/services/messaging-service/internal/message"
)

// Route maps a message type to its provider endpoint: sms and mms go to the
// messaging provider, email to the email provider. The table is static
// config; there is no per-tenant routing.
func Route(msgType string) string {
	if msgType == message.TypeEmail {
		return endpoint("providers.email_url", "http://localhost:8090/email/send")
	}
	return endpoint("providers.sms_url", "http://localhost:8090/sms/send")
}

func endpoint(key, fallback string) string {
	if url := viper.GetString(key); url != "" {
		return url
	}
	return fallback
}
