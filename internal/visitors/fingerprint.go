// Package visitors derives stable anonymous session identities from
// partial client signals, without cookies.
package visitors

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"navlens/internal/tokens"
)

// BuildFingerprint hashes the client signals that do not normally change
// within one browse into a 128-bit hex digest. The digest is keyed with
// the process-wide secret so it cannot be recomputed from public inputs
// alone. Missing optional inputs are empty strings, never an error.
//
// The four trailing fields compensate for reduced User-Agent strings in
// modern browsers: the UA alone only carries a major version there, so
// the client supplies full version, device model, architecture and a
// canvas hash to keep distinct physical devices distinguishable.
func BuildFingerprint(siteID, clientIP, userAgent, fullVersion, deviceModel, cpuArch, canvasHash string) string {
	var b strings.Builder
	b.Write(tokens.SecretKey())
	b.WriteString(siteID)
	b.WriteString(clientIP)
	b.WriteString(userAgent)
	b.WriteString(fullVersion)
	b.WriteString(deviceModel)
	b.WriteString(cpuArch)
	b.WriteString(canvasHash)

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
