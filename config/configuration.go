package config

import (
	"fmt"
	"strings"
	"time"
)

const DefaultCttTrackingEndpoint = "https://wct.cttexpress.com/p_track_redis.php?sc={tracking}"

type Configuration struct {
	ApplicationConfigFileYmlPath string `env:"APP_CONFIG_FILE_YML_PATH" envDefault:"application.yml"`

	ShopifyAccessToken string `env:"SHOPIFY_ACCESS_TOKEN"`
	ShopifyStoreDomain string `env:"SHOPIFY_STORE_DOMAIN"`
	ShopifyApiVersion  string `env:"SHOPIFY_API_VERSION" envDefault:"2024-04"`

	OrdersLimit           int     `env:"ORDERS_LIMIT" envDefault:"50"`
	RequestTimeoutSeconds float64 `env:"REQUEST_TIMEOUT" envDefault:"20"`

	CttTrackingEndpoint string `env:"CTT_TRACKING_ENDPOINT" envDefault:"https://wct.cttexpress.com/p_track_redis.php?sc={tracking}"`
	CttHeadersExtra     string `env:"CTT_HEADERS_EXTRA"`
}

func (c Configuration) Validate() error {
	var missing []string
	if c.ShopifyAccessToken == "" {
		missing = append(missing, "SHOPIFY_ACCESS_TOKEN")
	}
	if !strings.Contains(c.ShopifyStoreDomain, "myshopify.com") {
		missing = append(missing, "SHOPIFY_STORE_DOMAIN (e.g. mystore.myshopify.com)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c Configuration) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds * float64(time.Second))
}
