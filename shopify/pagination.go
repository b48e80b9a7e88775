package shopify

import (
	"net/url"
	"strings"
)

// nextPageInfo extracts the `page_info` cursor from a Shopify `Link` response header, e.g.
//
//	<https://x.myshopify.com/admin/api/2024-04/orders.json?limit=50&page_info=abc>; rel="next"
//
// Returns "" when there is no rel="next" segment.
func nextPageInfo(linkHeader string) string {
	for _, segment := range strings.Split(linkHeader, ",") {
		parts := strings.Split(segment, ";")
		if len(parts) < 2 {
			continue
		}
		if !strings.Contains(parts[1], `rel="next"`) {
			continue
		}

		rawURL := strings.Trim(strings.TrimSpace(parts[0]), "<>")
		parsed, err := url.Parse(rawURL)
		if err != nil {
			return ""
		}
		return parsed.Query().Get("page_info")
	}
	return ""
}
