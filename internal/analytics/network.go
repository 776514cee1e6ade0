package analytics

import (
	"regexp"
	"strings"

	"dispute-analytics/internal/correlate"
)

// Network is a card network inferred from a reason code.
type Network string

const (
	Visa       Network = "Visa"
	Mastercard Network = "Mastercard"
	Discover   Network = "Discover"
	Amex       Network = "Amex"
	Other      Network = "Other"
)

// The upstream does not report the network; these patterns follow each
// network's published reason-code shapes and are a best guess.
var networkRules = []struct {
	pattern *regexp.Regexp
	network Network
}{
	{regexp.MustCompile(`^\d{2}\.\d{1,2}(\.\d{1,2})?$`), Visa},
	{regexp.MustCompile(`^48\d{2}$`), Mastercard},
	{regexp.MustCompile(`^45\d{2}$`), Discover},
	{regexp.MustCompile(`^[A-Z]{1,2}\d{1,3}$`), Amex},
}

// InferNetwork maps a network reason code to a card network.
func InferNetwork(code string) Network {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return Other
	}
	for _, rule := range networkRules {
		if rule.pattern.MatchString(code) {
			return rule.network
		}
	}
	return Other
}

// ByNetwork groups disputes by inferred card network.
func ByNetwork(records []correlate.Record) []Bucket {
	t := newTally()
	for _, rec := range records {
		t.add(string(InferNetwork(rec.NetworkReasonCode)), rec.ReportingAmount)
	}
	return t.byVolume()
}
