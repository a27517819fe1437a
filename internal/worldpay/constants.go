package worldpay

import "time"

const (
	// WLDMinor is the smallest pot unit (1 WLD = 1000 minor units)
	WLDMinor = 1000

	// DevPortalAPI is the Developer Portal base URL used to verify
	// mini-app payment transactions
	DevPortalAPI = "https://developer.worldcoin.org/api/v2/minikit"

	// ConfirmPollInterval is how often WaitForConfirmation re-checks a
	// transaction that is still pending
	ConfirmPollInterval = 2 * time.Second

	// ConfirmTimeout bounds how long a confirmation poll may run
	ConfirmTimeout = 60 * time.Second
)

// Transaction statuses reported by the Developer Portal
const (
	TxStatusPending = "pending"
	TxStatusMined   = "mined"
	TxStatusFailed  = "failed"
)

// MinorToWLD converts minor units to whole WLD
func MinorToWLD(minor int64) float64 {
	return float64(minor) / WLDMinor
}

// WLDToMinor converts WLD to minor units
func WLDToMinor(wld float64) int64 {
	return int64(wld * WLDMinor)
}
