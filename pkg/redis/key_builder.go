package redis

import "fmt"

// Visitor counter key patterns, before the environment prefix is applied
const (
	KeyVisitorsTotal       = "visitors:total"
	KeyVisitorsDaily       = "visitors:daily"
	KeyVisitorsUnique      = "visitors:unique_ips"
	KeyVisitorsPageViews   = "visitors:page_views"
	KeyVisitorsLastReset   = "visitors:last_reset"
	KeyVisitorsIdentitySet = "visitors:ips_set"
	KeyVisitorsDailySet    = "visitors:ips_set:daily"
	KeyVisitorsPage        = "visitors:page:%s"
	KeyVisitorsHour        = "visitors:hour:%d"
	KeyVisitorsRateLimit   = "visitors:rate_limit:%s"
	KeyVisitorsDetails     = "visitors:details:%s" // visitors:details:2024-01-15
)

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	switch environment {
	case "development", "staging":
		prefix = "staging"
	case "test":
		prefix = "test"
	}

	return &KeyBuilder{
		prefix: prefix,
	}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

func (kb *KeyBuilder) KeyVisitorsTotal() string {
	return kb.BuildKey(KeyVisitorsTotal)
}

func (kb *KeyBuilder) KeyVisitorsDaily() string {
	return kb.BuildKey(KeyVisitorsDaily)
}

func (kb *KeyBuilder) KeyVisitorsUnique() string {
	return kb.BuildKey(KeyVisitorsUnique)
}

func (kb *KeyBuilder) KeyVisitorsPageViews() string {
	return kb.BuildKey(KeyVisitorsPageViews)
}

func (kb *KeyBuilder) KeyVisitorsLastReset() string {
	return kb.BuildKey(KeyVisitorsLastReset)
}

func (kb *KeyBuilder) KeyVisitorsIdentitySet() string {
	return kb.BuildKey(KeyVisitorsIdentitySet)
}

func (kb *KeyBuilder) KeyVisitorsDailySet() string {
	return kb.BuildKey(KeyVisitorsDailySet)
}

func (kb *KeyBuilder) KeyVisitorsPage(page string) string {
	return kb.BuildKey(fmt.Sprintf(KeyVisitorsPage, page))
}

func (kb *KeyBuilder) KeyVisitorsHour(hour int) string {
	return kb.BuildKey(fmt.Sprintf(KeyVisitorsHour, hour))
}

// KeyVisitorsRateLimit expects an already hashed identity
func (kb *KeyBuilder) KeyVisitorsRateLimit(identityHash string) string {
	return kb.BuildKey(fmt.Sprintf(KeyVisitorsRateLimit, identityHash))
}

// KeyVisitorsDetails takes a YYYY-MM-DD date
func (kb *KeyBuilder) KeyVisitorsDetails(date string) string {
	return kb.BuildKey(fmt.Sprintf(KeyVisitorsDetails, date))
}
