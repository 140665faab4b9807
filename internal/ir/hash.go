package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainModel prefixes model fingerprints. The suffix versions the layout.
const DomainModel = "bpmnforge/model/v1"

// hashWithDomain is SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint identifies the generated model held by c.
//
// It covers the description and every kind's records, not the audits,
// the product specifications or the version counter. A context decoded
// from its complete_context document has the same fingerprint as the one
// that wrote it.
func Fingerprint(c *Context) (string, error) {
	doc := map[string]any{"description": c.Description()}
	for _, k := range Kinds {
		items := make([]any, 0, c.Count(k))
		for _, r := range c.batches[k] {
			items = append(items, map[string]any(r))
		}
		doc[string(k)] = items
	}
	data, err := MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(DomainModel, data), nil
}
