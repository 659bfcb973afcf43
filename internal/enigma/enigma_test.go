package enigma_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"qnxdd/internal/enigma"
)

// TestDecodeIdentityTable builds a single segment whose table-construction
// tokens leave both tables at their default identity mapping (the two
// jump tokens carry table_index to 256 without writing a table entry),
// so the compressed payload round-trips byte for byte.
func TestDecodeIdentityTable(t *testing.T) {
	payload := []byte("HELLO")

	stream := []byte{
		0x00, 0x05, // seg_size = 5
		255, 128, // token: jump table_index 0 -> 128; peek matches, so 128 -> 129
		254, // token: jump table_index 129 -> 256, no peek needed
	}
	stream = append(stream, payload...)
	stream = append(stream, 0x00, 0x00) // terminating zero-length segment

	out, err := enigma.Decode(stream)
	require.NoError(t, err)
	require.Equal(t, payload, out)
}

func TestDecodeEmptyStream(t *testing.T) {
	out, err := enigma.Decode([]byte{0x00, 0x00})
	require.NoError(t, err)
	require.Empty(t, out)
}
