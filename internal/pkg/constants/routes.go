package constants

// Route constants
const (
	HealthRoute        = "/healthz"
	MetricsRoute       = "/metrics"
	StripeWebhookRoute = "/webhooks/stripe"
	APIRoute           = "/api"
	APIV1Route         = "/v1"
	DocsRoute          = "/docs/api/"
)
