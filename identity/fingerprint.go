package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"transfer_agents/models"
)

var multiSpaceRegex = regexp.MustCompile(`\s+`)

// Fingerprint identifies a transfer by (player, from club, to club, direction).
func Fingerprint(t *models.TransferRecord) string {
	input := fmt.Sprintf("%s|%s|%s|%s",
		NormalizeName(t.Player),
		NormalizeName(t.FromClub),
		NormalizeName(t.ToClub),
		strings.ToLower(string(t.Type)),
	)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:16])
}

func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return multiSpaceRegex.ReplaceAllString(s, " ")
}

// Dedupe keeps the first record for each fingerprint, preserving order.
func Dedupe(records []models.TransferRecord) ([]models.TransferRecord, int) {
	seen := make(map[string]struct{}, len(records))
	out := records[:0:0]
	dropped := 0
	for i := range records {
		fp := Fingerprint(&records[i])
		if _, ok := seen[fp]; ok {
			dropped++
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, records[i])
	}
	return out, dropped
}
