package credential

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWillSoonExpire_NoExpiration(t *testing.T) {
	c := NewAccessKeyCredentials("ak", "sk")
	for _, now := range []time.Time{time.Unix(0, 0), time.Now(), time.Now().AddDate(100, 0, 0)} {
		assert.False(t, c.WillSoonExpireAt(now))
	}
	assert.False(t, c.WillSoonExpire())
}

func TestWillSoonExpireAt(t *testing.T) {
	expiration := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		duration time.Duration
		factor   float64
		offset   time.Duration
		expected bool
	}{
		{"defaults just before margin", 0, 0, -360*time.Second - time.Nanosecond, false},
		{"defaults at margin", 0, 0, -360 * time.Second, true},
		{"defaults after expiry", 0, 0, time.Minute, true},
		{"custom before margin", 900 * time.Second, 0.5, -450*time.Second - time.Millisecond, false},
		{"custom at margin", 900 * time.Second, 0.5, -450 * time.Second, true},
		{"factor one at issue time", time.Hour, 1, -time.Hour, true},
		{"factor one before issue time", time.Hour, 1, -time.Hour - time.Second, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCredentials("ak", "sk", "token", expiration)
			c.ExpiredDuration = tt.duration
			c.ExpiredFactor = tt.factor
			assert.Equal(t, tt.expected, c.WillSoonExpireAt(expiration.Add(tt.offset)))
		})
	}
}

func TestCredentialsHelpers(t *testing.T) {
	c := NewCredentials(testAccessKeyID, testAccessKeySecret, testSecurityToken, time.Now().Add(time.Hour))
	assert.True(t, c.UseSecurityToken())
	assert.True(t, c.IsTemporary())
	assert.Len(t, c.AccessKeyID, 29)
	assert.Len(t, c.SecurityToken, 536)

	long := NewAccessKeyCredentials("LTAI5tExample", "secret")
	assert.False(t, long.UseSecurityToken())
	assert.False(t, long.IsTemporary())
}

func TestDeepCopy(t *testing.T) {
	var nilCreds *Credentials
	assert.Nil(t, nilCreds.DeepCopy())

	c := NewCredentials("ak", "sk", "token", time.Now())
	cp := c.DeepCopy()
	assert.Equal(t, c, cp)
	cp.AccessKeyID = "changed"
	assert.Equal(t, "ak", c.AccessKeyID)
}

func TestMaskAccessKeyID(t *testing.T) {
	assert.Equal(t, "", MaskAccessKeyID(""))
	assert.Equal(t, "***", MaskAccessKeyID("abc"))
	assert.Equal(t, "****", MaskAccessKeyID("abcd"))
	assert.Equal(t, "*****bcde", MaskAccessKeyID("abcdabcde"))
}
