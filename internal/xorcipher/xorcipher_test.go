package xorcipher_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"qnxdd/internal/xorcipher"
)

func TestApplyIsInvolutive(t *testing.T) {
	b := make([]byte, 8192)
	for i := range b {
		b[i] = byte(i)
	}

	once := xorcipher.Apply(b)
	require.NotEqual(t, b, once)

	twice := xorcipher.Apply(once)
	require.Equal(t, b, twice)
}

func TestApplyRestartsKeyPerSegment(t *testing.T) {
	b := make([]byte, 1024)
	out := xorcipher.Apply(b)
	require.Equal(t, out[:36], out[512:512+36])
}
