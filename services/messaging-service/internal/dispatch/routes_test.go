package dispatch

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/hatch/messaging/services/messaging-service/internal/message"
)

func TestRouteConfigured(t *testing.T) {
	viper.Set("providers.sms_url", "https://sms.example.com/send")
	viper.Set("providers.email_url", "https://email.example.com/send")
	t.Cleanup(func() {
		viper.Set("providers.sms_url", "")
		viper.Set("providers.email_url", "")
	})

	require.Equal(t, "https://sms.example.com/send", Route(message.TypeSMS))
	require.Equal(t, "https://sms.example.com/send", Route(message.TypeMMS))
	require.Equal(t, "https://email.example.com/send", Route(message.TypeEmail))
}

func TestRouteDefaults(t *testing.T) {
	viper.Set("providers.sms_url", "")
	viper.Set("providers.email_url", "")

	require.Equal(t, "http://localhost:8090/sms/send", Route(message.TypeSMS))
	require.Equal(t, "http://localhost:8090/email/send", Route(message.TypeEmail))
}
