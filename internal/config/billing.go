package config

import (
	"os"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/models"
)

// BillingConfig holds the purchasable token package catalog. Packages are
// static reference data; only the Stripe price ids vary per environment.
type BillingConfig struct {
	Packages []models.TokenPackage
}

// DefaultBillingConfig returns the standard three-tier catalog. Stripe price
// ids come from the environment so test and live modes can differ without a
// code change.
func DefaultBillingConfig() *BillingConfig {
	return &BillingConfig{
		Packages: []models.TokenPackage{
			{
				ID:            "starter",
				Name:          "starter",
				DisplayName:   "Starter Pack",
				Tokens:        10,
				PriceUSD:      2.99,
				PerTokenUSD:   0.299,
				Description:   "10 optimization tokens to get going",
				Active:        true,
				StripePriceID: os.Getenv("STRIPE_PRICE_STARTER"),
				SortOrder:     1,
			},
			{
				ID:            "popular",
				Name:          "popular",
				DisplayName:   "Popular Pack",
				Tokens:        50,
				PriceUSD:      9.99,
				PerTokenUSD:   0.1998,
				Description:   "50 tokens, our best seller",
				Popular:       true,
				Active:        true,
				StripePriceID: os.Getenv("STRIPE_PRICE_POPULAR"),
				SortOrder:     2,
			},
			{
				ID:            "power",
				Name:          "power",
				DisplayName:   "Power Pack",
				Tokens:        150,
				PriceUSD:      19.99,
				PerTokenUSD:   0.1333,
				Description:   "150 tokens for heavy use",
				Active:        true,
				StripePriceID: os.Getenv("STRIPE_PRICE_POWER"),
				SortOrder:     3,
			},
		},
	}
}

// GetPackage returns the active package with the given id, or nil.
func (b *BillingConfig) GetPackage(id string) *models.TokenPackage {
	for i := range b.Packages {
		if b.Packages[i].ID == id && b.Packages[i].Active {
			return &b.Packages[i]
		}
	}
	return nil
}

// ActivePackages returns the catalog entries that are currently purchasable,
// in display order.
func (b *BillingConfig) ActivePackages() []models.TokenPackage {
	out := make([]models.TokenPackage, 0, len(b.Packages))
	for _, p := range b.Packages {
		if p.Active {
			out = append(out, p)
		}
	}
	return out
}
