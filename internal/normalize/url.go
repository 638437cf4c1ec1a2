package normalize

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var errNotAbsolute = errors.New("not an absolute URL")

// trackingParams are query parameters stripped from canonical URLs.
var trackingParams = map[string]bool{
	"gclid":   true,
	"fbclid":  true,
	"msclkid": true,
	"refid":   true,
	"trk":     true,
}

// CanonicalURL resolves raw against base when it is relative, lowercases the
// host, drops the fragment and strips tracking parameters. The result must be
// an absolute http(s) URL.
func CanonicalURL(raw, base string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}

	if !u.IsAbs() && base != "" {
		b, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("parse base URL: %w", err)
		}
		u = b.ResolveReference(u)
	}

	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return "", errNotAbsolute
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			lk := strings.ToLower(key)
			if strings.HasPrefix(lk, "utm_") || trackingParams[lk] {
				q.Del(key)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
