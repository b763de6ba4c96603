package redeem

// RedemptionContext identifies where a scan happened. The two variants keep
// discount resolution exhaustive: a merchant-present scan takes the
// merchant's configured discount, an unattended scan falls back to the
// member's tier cap.
type RedemptionContext struct {
	merchantID  uint64
	hasMerchant bool
}

// AtMerchant builds the context for a scan at a participating merchant.
func AtMerchant(merchantID uint64) RedemptionContext {
	return RedemptionContext{merchantID: merchantID, hasMerchant: true}
}

// Unattended builds the context for a scan with no merchant present.
func Unattended() RedemptionContext {
	return RedemptionContext{}
}

// Merchant returns the merchant ID and whether one is present.
func (c RedemptionContext) Merchant() (uint64, bool) {
	return c.merchantID, c.hasMerchant
}
