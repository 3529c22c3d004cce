package classify

import (
	"strings"
)

// Category is a device family produced by a rule
type Category string

const (
	CategoryAccessPoint Category = "AP"
	CategoryDevBoard    Category = "Dev Board"
	CategoryIoT         Category = "IoT Device"
	CategoryClient      Category = "Client"
	CategoryUnknown     Category = "Unknown Device"
)

// Label renders the classification string for a vendor
func (c Category) Label(vendorLabel string) string {
	if c == CategoryUnknown {
		return string(c) + " (" + vendorLabel + ")"
	}
	return string(c) + ": " + vendorLabel
}

// Signals is the evidence a rule sees
type Signals struct {
	MAC       string
	Vendor    string
	OpenPorts []int
}

// HasPort reports whether port is in the open set
func (s Signals) HasPort(port int) bool {
	for _, p := range s.OpenPorts {
		if p == port {
			return true
		}
	}
	return false
}

// Rule maps a predicate over Signals to a category and a confidence bonus
type Rule struct {
	Name     string
	Category Category
	Bonus    int
	Match    func(Signals) bool
}

// fallback applies when no rule matches
var fallback = Rule{Name: "unknown", Category: CategoryUnknown}

// Well-known IoT messaging ports
const (
	PortMQTT = 1883
	PortCoAP = 5683
)

// DefaultRules returns the stock rule table, highest priority first
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "access-point",
			Category: CategoryAccessPoint,
			Bonus:    30,
			Match:    vendorContains("Router", "AP"),
		},
		{
			Name:     "dev-board",
			Category: CategoryDevBoard,
			Bonus:    30,
			Match:    vendorContainsFold("esp", "arduino", "pi"),
		},
		{
			Name:     "iot",
			Category: CategoryIoT,
			Bonus:    20,
			Match:    portOpen(PortMQTT, PortCoAP),
		},
		{
			Name:     "client",
			Category: CategoryClient,
			Bonus:    20,
			Match: vendorContainsFold(
				"apple", "samsung", "intel", "huawei", "dell",
				"hp", "xiaomi", "oneplus", "google",
			),
		},
	}
}

// Evaluate returns the first rule that matches, or the unknown fallback
func Evaluate(rules []Rule, s Signals) Rule {
	for _, r := range rules {
		if r.Match != nil && r.Match(s) {
			return r
		}
	}
	return fallback
}

// vendorContains matches case-sensitive substrings of the vendor label
func vendorContains(subs ...string) func(Signals) bool {
	return func(s Signals) bool {
		for _, sub := range subs {
			if strings.Contains(s.Vendor, sub) {
				return true
			}
		}
		return false
	}
}

// vendorContainsFold matches case-insensitive substrings of the vendor label
func vendorContainsFold(subs ...string) func(Signals) bool {
	return func(s Signals) bool {
		v := strings.ToLower(s.Vendor)
		for _, sub := range subs {
			if strings.Contains(v, strings.ToLower(sub)) {
				return true
			}
		}
		return false
	}
}

// portOpen matches when any of ports is open
func portOpen(ports ...int) func(Signals) bool {
	return func(s Signals) bool {
		for _, p := range ports {
			if s.HasPort(p) {
				return true
			}
		}
		return false
	}
}
