package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// BuildManifest assembles the canonical string the gateway signs. The data id
// is lowercased when alphanumeric, matching the gateway's manifest rules.
func BuildManifest(dataID, requestID, ts string) string {
	id := dataID
	if isAlphanumeric(id) {
		id = strings.ToLower(id)
	}
	return fmt.Sprintf("id:%s;request-id:%s;ts:%s;", id, requestID, ts)
}

// ParseSignatureHeader splits an `x-signature` header of the form
// `ts=...,v1=...` into its timestamp and hash parts.
func ParseSignatureHeader(header string) (ts, v1 string, err error) {
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			v1 = strings.TrimSpace(value)
		}
	}
	if ts == "" || v1 == "" {
		return "", "", fmt.Errorf("malformed signature header")
	}
	return ts, v1, nil
}

// VerifySignature validates the webhook HMAC: sha256 over the manifest built
// from the data id, the x-request-id header, and the ts from x-signature.
func VerifySignature(secret, signatureHeader, requestID, dataID string) error {
	ts, v1, err := ParseSignatureHeader(signatureHeader)
	if err != nil {
		return err
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(BuildManifest(dataID, requestID, ts)))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(v1))) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return s != ""
}
