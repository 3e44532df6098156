package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// CacheKey identifies a stored GitHub response.
type CacheKey struct {
	// Endpoint is the request path (e.g., "/repos/o/r/pulls/42")
	Endpoint string

	// QueryParams are the query parameters (e.g., {"page": "2"})
	QueryParams url.Values

	// Credential is a fingerprint of the token the response was fetched
	// with, so private data is never shared across tokens ("" = anonymous).
	Credential string
}

// String generates a deterministic cache key string.
// Format: gh:endpoint:query1=a,b:query2=c:cred=abcd
//
// Example:
//
//	gh:search/issues:page=1:per_page=100:q=is:pr repo:o/r
func (k CacheKey) String() string {
	parts := []string{"gh"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.QueryParams) > 0 {
		keys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts = append(parts, key+"="+strings.Join(k.QueryParams[key], ","))
		}
	}

	if k.Credential != "" {
		parts = append(parts, "cred="+k.Credential)
	}

	return strings.Join(parts, ":")
}

// Fingerprint returns a short, non-reversible identifier for a token.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:6])
}

// KeyForRequest builds the key of an outgoing request made with token.
func KeyForRequest(req *http.Request, token string) CacheKey {
	return CacheKey{
		Endpoint:    req.URL.Path,
		QueryParams: req.URL.Query(),
		Credential:  Fingerprint(token),
	}
}
