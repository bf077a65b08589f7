package integration_test

const (
	TestAPIKey        = "test-api-key"
	TestSuccessURL    = "https://shop.example.com/payment/success"
	TestCancelURL     = "https://shop.example.com/payment/cancel"
	TestWebhookSecret = "whsec_test_secret"

	// Stripe stub related constants
	TestStripeSecretKey     = "sk_test_123"
	TestCheckoutSessionId   = "cs_test_1"
	TestCheckoutSessionURL  = "https://checkout.stripe.com/c/pay/cs_test_1"
	TestPaymentIntentId     = "pi_test_1"
	TestCustomerEmail       = "jane@example.com"
	TestCustomerName        = "Jane Doe"
	TestPaymentDescription  = "Order #1"
	TestSeedOfflinePayment  = "seed-offline"
	TestSeedStripePayment   = "seed-stripe"
	TestSeedCheckoutSession = "cs_seed_1"
	TestSeedOpenPayment     = "seed-stripe-open"
)
