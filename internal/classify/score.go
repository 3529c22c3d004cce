package classify

import (
	"lanscope/internal/domain"
	"lanscope/internal/vendor"
)

const (
	// BaseConfidence is where every fresh classification starts
	BaseConfidence = 10
	// VendorBonus applies when the OUI directory knows the prefix
	VendorBonus = 50
	// GenericPrefixBonus applies to unknown vendors with a common first octet
	GenericPrefixBonus = 25
)

// genericFirstOctets are first octets seen often enough on consumer gear
// to be weak evidence on their own
var genericFirstOctets = map[string]bool{
	"00": true,
	"F4": true,
	"B8": true,
}

// baseConfidence scores the MAC-derived signals. mac must be uppercase.
func baseConfidence(vendorLabel, mac string) int {
	score := BaseConfidence
	if vendorLabel != vendor.Unknown {
		score += VendorBonus
	} else if genericFirstOctets[domain.FirstOctet(mac)] {
		score += GenericPrefixBonus
	}
	return score
}
