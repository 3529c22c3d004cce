// Package codec exports sweep results and classification records as JSON or
// YAML, and imports records back.
//
// Record exports use the cache file layout: an object keyed by uppercase MAC
// holding ip, classification, confidence and last_seen. A JSON export can be
// dropped in as a cache file.
package codec
