package catalog

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
)

// hashLen is the number of hex characters kept from the digest. Truncation
// is a size tradeoff: the hash only detects change between at most a few
// thousand records, it is never used for security.
const hashLen = 12

// ContentHash computes the change-detection fingerprint for a record.
//
// The digest covers the semantic fields in a fixed order; bookkeeping fields
// (UpdatedAt, ContentHash itself) are excluded so re-persisting an unchanged
// record keeps its fingerprint stable.
func ContentHash(r Record) string {
	tank := ""
	if r.TankCapacity != nil {
		tank = formatThreshold(*r.TankCapacity)
	}

	payload := strings.Join([]string{
		r.CarID,
		string(r.ChassisType),
		formatThreshold(r.Yellow),
		formatThreshold(r.Green),
		formatThreshold(r.Gold),
		tank,
		string(r.Status),
	}, "|")

	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])[:hashLen]
}

// formatThreshold renders a number with the shortest exact representation so
// 2.0 and 2 hash identically.
func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
