package signals

import (
	"net/url"
	"strings"
)

var trackingParams = map[string]struct{}{
	"gclid":  {},
	"fbclid": {},
	"ref":    {},
	"source": {},
	"trk":    {},
}

func isTrackingParam(key string) bool {
	k := strings.ToLower(key)
	if strings.HasPrefix(k, "utm_") {
		return true
	}
	_, ok := trackingParams[k]
	return ok
}

// CanonicalURL drops the fragment, tracking parameters and a single trailing
// slash so that links to the same posting compare equal. The remaining query
// parameters are re-encoded sorted by key, so URLs that differ only in
// parameter order also compare equal. Scheme and host are kept as written.
// It returns "" for input that is not an absolute URL.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}

	u.Fragment = ""
	u.RawFragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			if isTrackingParam(key) {
				q.Del(key)
			}
		}
		u.RawQuery = q.Encode()
	}
	u.ForceQuery = false

	if strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
		u.RawPath = ""
	}

	return u.String()
}
