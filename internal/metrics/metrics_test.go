package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQualityLevelThresholds(t *testing.T) {
	require.Equal(t, "good", QualityLevel(0.0, 10, 5, 0))
	require.Equal(t, "moderate", QualityLevel(0.05, 10, 5, 0))
	require.Equal(t, "moderate", QualityLevel(0.0, 150, 5, 0))
	require.Equal(t, "poor", QualityLevel(0.15, 10, 5, 0))
	require.Equal(t, "poor", QualityLevel(0.0, 10, 5, 6))
}

func TestRecordReceivedInOrderHasNoLoss(t *testing.T) {
	c := NewCollector()
	for seq := uint32(0); seq < 10; seq++ {
		c.RecordReceived(seq)
	}
	snap := c.Snapshot(16000, 0, 0, 0)
	require.Equal(t, 0.0, snap.PacketLoss)
}

func TestRecordReceivedGapCountsLoss(t *testing.T) {
	c := NewCollector()
	c.RecordReceived(0)
	c.RecordReceived(1)
	c.RecordReceived(5) // sequences 2,3,4 skipped

	snap := c.Snapshot(16000, 0, 0, 0)
	require.Greater(t, snap.PacketLoss, 0.0)
}

func TestRecordReceivedDuplicateDoesNotUnderflow(t *testing.T) {
	c := NewCollector()
	c.RecordReceived(5)
	c.RecordReceived(3) // stale relative to high-water mark
	c.RecordReceived(4) // also stale

	snap := c.Snapshot(16000, 0, 0, 0)
	require.GreaterOrEqual(t, snap.PacketLoss, 0.0)
}

func TestSnapshotReportsTargetBitrateInKbps(t *testing.T) {
	c := NewCollector()
	snap := c.Snapshot(24000, 0, 0, 0)
	require.Equal(t, 24, snap.OpusTargetKbps)
}

func TestSnapshotCarriesDropCounters(t *testing.T) {
	c := NewCollector()
	snap := c.Snapshot(16000, 0, 7, 3)
	require.Equal(t, uint64(7), snap.CaptureDropped)
	require.Equal(t, uint64(3), snap.PlaybackDropped)
}

func TestSnapshotResetsBytesSentWindow(t *testing.T) {
	c := NewCollector()
	c.RecordSent(2000)
	first := c.Snapshot(16000, 0, 0, 0)
	require.Greater(t, first.BitrateKbps, 0.0)

	second := c.Snapshot(16000, 0, 0, 0)
	require.Equal(t, 0.0, second.BitrateKbps)
}
