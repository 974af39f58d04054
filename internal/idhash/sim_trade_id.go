package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeSimTradeID computes a deterministic ID for a simulated trade
// using SHA256. Formula: SHA256(market|source_trade_id|policy_id).
// The same source trade replayed under the same policy always yields the
// same ID, so re-runs are idempotent at the storage layer.
func ComputeSimTradeID(market, sourceTradeID, policyID string) string {
	data := fmt.Sprintf("%s|%s|%s", market, sourceTradeID, policyID)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
