package frame

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func silentPCM(n int) []byte {
	b := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(b[i*2:i*2+2], uint16(int16(0)))
	}
	return b
}

func loudPCM(n int) []byte {
	b := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(b[i*2:i*2+2], uint16(int16(30000)))
	}
	return b
}

func TestMakeAssignsIncrementingSequence(t *testing.T) {
	f := New(16000, 1, 320)
	a := f.Make(loudPCM(320))
	b := f.Make(loudPCM(320))
	require.Equal(t, uint32(0), a.Sequence)
	require.Equal(t, uint32(1), b.Sequence)
}

func TestSilenceDetection(t *testing.T) {
	f := New(16000, 1, 320)
	quiet := f.Make(silentPCM(320))
	require.True(t, quiet.Silence)

	loud := f.Make(loudPCM(320))
	require.False(t, loud.Silence)
}

func TestSilenceDetectionFailsOpenOnMalformedLength(t *testing.T) {
	f := New(16000, 1, 320)
	af := f.Make([]byte{0x01})
	require.False(t, af.Silence)
}

func TestByteLen(t *testing.T) {
	require.Equal(t, 640, ByteLen(320, 1))
	require.Equal(t, 1280, ByteLen(320, 2))
}

func TestValid(t *testing.T) {
	f := New(16000, 1, 320)
	af := f.Make(loudPCM(320))
	require.True(t, Valid(af, 16000, 1))
	require.False(t, Valid(af, 8000, 1))

	af.Data = af.Data[:10]
	require.False(t, Valid(af, 16000, 1))
}

func TestSetSilenceThreshold(t *testing.T) {
	f := New(16000, 1, 320)
	f.SetSilenceThreshold(0)
	af := f.Make(silentPCM(320))
	require.False(t, af.Silence, "threshold of 0 should never classify a frame as silent")
}
