package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testSampleRate = 16000
	testChannels   = 1
	testFrameLen   = 320
)

func sineFramePCM(freq float64, seqOffset int) []byte {
	pcm := make([]int16, testFrameLen)
	for i := range pcm {
		t := float64(i+seqOffset*testFrameLen) / float64(testSampleRate)
		pcm[i] = int16(math.Sin(2*math.Pi*freq*t) * 16000)
	}
	return int16ToBytes(pcm)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c, err := New(testSampleRate, testChannels, testFrameLen)
	require.NoError(t, err)

	pcm := sineFramePCM(440, 0)
	packet := c.Encode(pcm)
	require.NotNil(t, packet)
	require.NotEmpty(t, packet)

	out := c.Decode(packet)
	require.NotNil(t, out)
	require.Len(t, out, testFrameLen*testChannels*2)
}

func TestEncodeRejectsWrongLength(t *testing.T) {
	c, err := New(testSampleRate, testChannels, testFrameLen)
	require.NoError(t, err)

	got := c.Encode([]byte{0x00, 0x01})
	require.Nil(t, got)
}

func TestDecodeRejectsGarbagePacket(t *testing.T) {
	c, err := New(testSampleRate, testChannels, testFrameLen)
	require.NoError(t, err)

	got := c.Decode([]byte{0xff, 0xff, 0xff, 0xff})
	require.Nil(t, got)
}

func TestSetBitrate(t *testing.T) {
	c, err := New(testSampleRate, testChannels, testFrameLen)
	require.NoError(t, err)
	require.Equal(t, DefaultBitrate, c.Bitrate())

	require.NoError(t, c.SetBitrate(24000))
	require.Equal(t, 24000, c.Bitrate())
}

func TestEncoderAndDecoderAreIndependentInstances(t *testing.T) {
	a, err := New(testSampleRate, testChannels, testFrameLen)
	require.NoError(t, err)
	b, err := New(testSampleRate, testChannels, testFrameLen)
	require.NoError(t, err)
	require.NotSame(t, a.enc, b.enc)
	require.NotSame(t, a.dec, b.dec)
}

func TestInt16ByteConversionRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 12345}
	b := int16ToBytes(samples)
	require.Len(t, b, len(samples)*2)
	got := bytesToInt16(b)
	require.Equal(t, samples, got)
}
