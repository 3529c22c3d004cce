// Package classify assigns a device-type label and a confidence score to a
// discovered (IP, MAC) pair.
//
// # Scoring
//
// Every fresh classification starts at BaseConfidence. A vendor match in the
// OUI directory adds VendorBonus; failing that, a MAC whose first octet is in
// the generic set adds GenericPrefixBonus. The two never combine. The first
// matching Rule then contributes its label and bonus, and the total is
// clamped to [0,100].
//
// # Rules
//
// Rules are an ordered table evaluated first-match-wins. DefaultRules
// returns the stock table; WithRules swaps it out. Order is significant:
// a vendor label such as "Ubiquiti AP" would satisfy both the access-point
// and the client predicates if the latter listed it, and only the earlier
// rule applies.
//
// # Port probes
//
// The engine calls a PortProber for open ports. A failed probe is logged and
// treated as "no open ports"; port evidence only ever adds confidence, so
// losing it degrades the result instead of failing it.
//
// # Caching
//
// Results are written through a cache.Cache. A cache hit returns the stored
// values without probing; a miss (or a forced refresh) computes, stores and
// persists the new record. A persistence failure is returned as an error
// wrapping ErrPersist together with the computed result.
package classify
