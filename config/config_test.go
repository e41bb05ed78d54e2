package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"https://a.com", "https://b.com"}, splitList(" https://a.com , ,https://b.com "))
}

func TestParsePairs(t *testing.T) {
	got := parsePairs("com.mansamusa.premium.monthly = premium, broken, com.mansamusa.biz=business_premium")
	assert.Equal(t, map[string]string{
		"com.mansamusa.premium.monthly": "premium",
		"com.mansamusa.biz":             "business_premium",
	}, got)
	assert.Empty(t, parsePairs(""))
}

func TestLoad(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("MONGO_URI", "")
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_EXPIRY", "24h")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("STRIPE_PRICE_PREMIUM", "price_premium")
	t.Setenv("APPLE_PRODUCTS", "com.mansamusa.premium.monthly=premium")
	t.Setenv("APPLE_ALLOW_UNVERIFIED", "true")
	t.Setenv("CORS_ORIGINS", "https://staging.mansamusamarketplace.com")

	cfg := Load()
	require.NotNil(t, cfg)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "mongodb://db:27017", cfg.MongoURI)
	assert.NotEmpty(t, cfg.JWTSecret, "development falls back to a dev secret")
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, "price_premium", cfg.StripePrices["premium"])
	assert.Equal(t, "premium", cfg.AppleProducts["com.mansamusa.premium.monthly"])
	assert.True(t, cfg.AppleAllowUnverified)
	assert.Equal(t, []string{"https://staging.mansamusamarketplace.com"}, cfg.CORSOrigins)
}
