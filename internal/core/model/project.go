package model

import (
	"fmt"
	"strings"
)

// Project is the campaign-wide configuration every generation call receives.
type Project struct {
	ProductName           string `json:"productName" toml:"product_name"`
	ProductDescription    string `json:"productDescription" toml:"product_description"`
	TargetAudience        string `json:"targetAudience" toml:"target_audience"`
	TargetCountry         string `json:"targetCountry" toml:"target_country"`
	BrandVoice            string `json:"brandVoice" toml:"brand_voice"`
	FunnelStage           string `json:"funnelStage" toml:"funnel_stage"`
	MarketAwareness       string `json:"marketAwareness" toml:"market_awareness"`
	CopyFramework         string `json:"copyFramework" toml:"copy_framework"`
	Offer                 string `json:"offer" toml:"offer"`
	LanguageRegister      string `json:"languageRegister" toml:"language_register"`
	ProductReferenceImage string `json:"productReferenceImage,omitempty" toml:"product_reference_image"`
}

// WithOffer returns a copy of the project whose offer is replaced by the
// expanded Mafia offer, when one is attached.
func (p Project) WithOffer(o *MafiaOffer) Project {
	if o == nil {
		return p
	}
	p.Offer = fmt.Sprintf("MAFIA OFFER HEADLINE: \"%s\". \nVALUE STACK: %s. \nRISK REVERSAL (GUARANTEE): %s. \nSCARCITY: %s",
		o.Headline, strings.Join(o.ValueStack, " + "), o.RiskReversal, o.Scarcity)
	return p
}
