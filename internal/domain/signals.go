package domain

// ContextSignals are derived from history on every read and never stored.
type ContextSignals struct {
	LastAgentSentiment    *float64 `json:"lastAgentSentiment"`
	LastCustomerSentiment *float64 `json:"lastCustomerSentiment"`
	AverageSentiment      *float64 `json:"averageSentiment"`
	Keywords              []string `json:"keywords"`
}
