package engine

import (
	"crypto/sha1"
	"encoding/hex"
)

// fingerprintLen is the hex-encoded digest prefix length kept for keys.
const fingerprintLen = 16

// Fingerprint builds the deterministic dedup identifier for one rule scope.
// Params: rule ID plus warehouse/zone/shift identifiers (zone and shift may
// be empty).
// Returns: stable truncated sha1 hex digest. Identical inputs always yield
// the same value across process restarts; no salt is involved.
func Fingerprint(ruleID, warehouseID, zoneID, shiftCode string) string {
	canonical := make([]byte, 0, len(ruleID)+len(warehouseID)+len(zoneID)+len(shiftCode)+4*12)
	canonical = appendField(canonical, "ruleId", ruleID)
	canonical = append(canonical, '\n')
	canonical = appendField(canonical, "warehouseId", warehouseID)
	canonical = append(canonical, '\n')
	canonical = appendField(canonical, "zoneId", zoneID)
	canonical = append(canonical, '\n')
	canonical = appendField(canonical, "shiftCode", shiftCode)

	digest := sha1.Sum(canonical)
	var encoded [sha1.Size * 2]byte
	hex.Encode(encoded[:], digest[:])
	return string(encoded[:fingerprintLen])
}

// appendField appends one key=value pair to the canonical serialization.
// Params: destination buffer, field key, and field value.
// Returns: extended buffer.
func appendField(dst []byte, key, value string) []byte {
	dst = append(dst, key...)
	dst = append(dst, '=')
	dst = append(dst, value...)
	return dst
}
