// Package ident derives the deterministic identifiers used across the
// warehouse. IDs are pure functions of their natural keys: independent
// ingestion runs, possibly months apart, must converge on the same
// dimension row.
package ident

import (
	"crypto/sha1" //nolint:gosec // not used for security, digest is the ID contract
	"encoding/hex"
	"fmt"
	"strings"
)

const digestLen = 16

// StableID builds a surrogate key from a namespace and an ordered list
// of natural key values. Empty values are dropped, the rest are trimmed
// and uppercased before hashing, so case and whitespace variations of
// the same natural key map to the same ID.
func StableID(namespace string, values ...string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		parts = append(parts, strings.ToUpper(strings.TrimSpace(v)))
	}
	base := fmt.Sprintf("%s|%s", namespace, strings.Join(parts, "|"))
	//nolint:gosec // see package comment
	digest := sha1.Sum([]byte(base))
	return fmt.Sprintf("%s_%s", namespace, hex.EncodeToString(digest[:])[:digestLen])
}

// RaceID identifies one (season, round, session type) instance,
// e.g. "2024_05_R".
func RaceID(season, round int, sessionType string) string {
	return fmt.Sprintf("%d_%02d_%s", season, round, strings.ToUpper(sessionType))
}

func DriverID(driverCode string) string {
	return StableID("drv", driverCode)
}

func TeamID(teamName string) string {
	return StableID("team", teamName)
}
