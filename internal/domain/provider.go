package domain

import "fmt"

// Provider selects the adapter that talks to an external payment network.
type Provider string

const (
	ProviderOffline Provider = "offline"
	ProviderPayPal  Provider = "paypal"
	ProviderStripe  Provider = "stripe"
)

func ParseProvider(s string) (Provider, error) {
	switch p := Provider(s); p {
	case ProviderOffline, ProviderPayPal, ProviderStripe:
		return p, nil
	default:
		return "", fmt.Errorf("unknown payment provider %q", s)
	}
}

func (p Provider) String() string {
	return string(p)
}

// AssignsProviderID reports whether the provider stamps its own identifier onto
// payments at creation time. Operations after create need that identifier.
func (p Provider) AssignsProviderID() bool {
	return p != ProviderOffline
}
