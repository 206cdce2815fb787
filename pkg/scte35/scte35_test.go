package scte35_test

import (
	"testing"

	"github.com/rdkcentral/meta-middleware-generic-support-sub009/pkg/scte35"
	"github.com/stretchr/testify/require"
)

// TestCreateSpliceInsertPayload exercises the splice_insert encoding the way
// pkg/cdai's EncodeSpliceInsertSignal calls it: a splice-out signal with a
// duration and auto-return set, carrying a PTS and event id derived from an
// adbreak boundary.
func TestCreateSpliceInsertPayload(t *testing.T) {
	payload := scte35.CreateSpliceInsertPayload(scte35.SpliceInsertParams{
		PtsTime:               900_000,
		Duration:              1_800_000,
		SpliceEventID:         7,
		Tier:                  4095,
		OutOfNetworkIndicator: true,
		AutoReturn:            true,
	})
	require.NotEmpty(t, payload)
	// splice_info_section always opens with table_id 0xFC per SCTE-35.
	require.Equal(t, byte(0xFC), payload[0])

	// Encoding is a pure function of its params: same params, same bytes.
	again := scte35.CreateSpliceInsertPayload(scte35.SpliceInsertParams{
		PtsTime:               900_000,
		Duration:              1_800_000,
		SpliceEventID:         7,
		Tier:                  4095,
		OutOfNetworkIndicator: true,
		AutoReturn:            true,
	})
	require.Equal(t, payload, again)

	// A different event id changes the encoded bytes.
	other := scte35.CreateSpliceInsertPayload(scte35.SpliceInsertParams{
		PtsTime:               900_000,
		Duration:              1_800_000,
		SpliceEventID:         8,
		Tier:                  4095,
		OutOfNetworkIndicator: true,
		AutoReturn:            true,
	})
	require.NotEqual(t, payload, other)
}
