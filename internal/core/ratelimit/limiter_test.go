package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBurstThenReject(t *testing.T) {
	s := NewStore(30)

	for i := 0; i < 30; i++ {
		assert.True(t, s.Allow("203.0.113.7"), "request %d should pass", i+1)
	}
	assert.False(t, s.Allow("203.0.113.7"), "31st request must be rejected")
}

func TestKeysAreIndependent(t *testing.T) {
	s := NewStore(5)

	for i := 0; i < 5; i++ {
		s.Allow("ip-a")
	}
	assert.False(t, s.Allow("ip-a"))
	assert.True(t, s.Allow("ip-b"), "a saturated key must not affect others")
}
