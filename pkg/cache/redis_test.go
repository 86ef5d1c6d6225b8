package cache

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	r, closeRedis, err := NewRedis(mr.Addr(), "", "")
	require.NoError(t, err)
	defer closeRedis()

	assert.Equal(t, mr.Addr(), r.Options().Addr)
}

func TestNewRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, _, err := NewRedis(addr, "", "")
	assert.Error(t, err)
}
