// Package enigma decodes the custom dictionary-based compression scheme
// used by the third-stage bootloader of the QNX Demodisk. It is
// decode-only: nothing in this toolkit ever re-encodes a stream in this
// format, and its output is never written back to an image, only
// inspected.
package enigma

import (
	"encoding/binary"
	"fmt"
)

// Decode reads back-to-back segments from in until a zero-length segment
// header ends the stream, and returns the concatenated decoded output.
func Decode(in []byte) ([]byte, error) {
	var out []byte
	pos := 0

	for {
		if pos+2 > len(in) {
			break
		}
		segSize := int(binary.BigEndian.Uint16(in[pos : pos+2]))
		pos += 2
		if segSize == 0 {
			break
		}

		var t1, t2 [256]byte
		for i := range t1 {
			t1[i] = byte(i)
		}

		tableIndex := 0
		for tableIndex < 256 {
			token := int(in[pos])
			pos++

			if token > 127 {
				token -= 127
				tableIndex += token
				if tableIndex >= 256 {
					continue
				}
				testByte := in[pos]
				pos++
				if int(testByte) == tableIndex {
					tableIndex++
					continue
				}
				t1[tableIndex] = testByte
				t2[tableIndex] = in[pos]
				pos++
			} else {
				t1[tableIndex] = in[pos]
				pos++
				t2[tableIndex] = in[pos]
				pos++
				for token > 0 {
					tableIndex++
					token--
					testByte := in[pos]
					pos++
					if int(testByte) == tableIndex {
						tableIndex++
						token--
						testByte = in[pos]
						pos++
					}
					t1[tableIndex] = testByte
					t2[tableIndex] = in[pos]
					pos++
				}
			}
			tableIndex++
		}

		if tableIndex != 256 {
			return nil, fmt.Errorf("enigma: invalid segment, table index ended at %d", tableIndex)
		}

		comp := in[pos : pos+segSize]
		pos += segSize

		var segOut []byte
		stack := make([]byte, 0, 64)
		for _, token := range comp {
			stack = append(stack, token)
			for len(stack) > 0 {
				t := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if t1[t] == t {
					segOut = append(segOut, t)
				} else {
					stack = append(stack, t2[t], t1[t])
				}
			}
		}
		out = append(out, segOut...)
	}

	return out, nil
}
