package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Canonicalize joins params as key=value pairs sorted by key, using the raw
// (unescaped) values. Empty values are left out, as the gateway does.
func Canonicalize(params map[string]string) string {
	keys := sortedKeys(params)
	var b strings.Builder
	for _, key := range keys {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(params[key])
	}
	return b.String()
}

// Sign returns the lowercase hex HMAC-SHA512 of the canonical form of params.
func Sign(secret string, params map[string]string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(Canonicalize(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// signaturesEqual compares hex digests case-insensitively in constant time.
func signaturesEqual(expected, received string) bool {
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(received))))
}

// encodeQuery renders params sorted by key with escaped values and the
// signature appended last.
func encodeQuery(params map[string]string, signature string) string {
	var b strings.Builder
	for _, key := range sortedKeys(params) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[key]))
	}
	b.WriteByte('&')
	b.WriteString(ParamSecureHash)
	b.WriteByte('=')
	b.WriteString(signature)
	return b.String()
}

func sortedKeys(params map[string]string) []string {
	keys := make([]string, 0, len(params))
	for key, value := range params {
		if value == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
