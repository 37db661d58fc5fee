package ledgergrpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seqMessage struct {
	Seq     uint64            `json:"seq"`
	Version int64             `json:"version"`
	Score   float64           `json:"score"`
	Nested  map[string]uint64 `json:"nested"`
}

func TestStructRoundTripKeepsIntegersUpTo2Pow53(t *testing.T) {
	in := seqMessage{Seq: maxStructInt, Version: -maxStructInt, Score: 0.25, Nested: map[string]uint64{"tx_seq": maxStructInt - 1}}
	msg, err := toStruct(in)
	require.NoError(t, err)

	var out seqMessage
	require.NoError(t, fromStruct(msg, &out))
	assert.Equal(t, in, out)
}

func TestToStructRejectsIntegersBeyond2Pow53(t *testing.T) {
	for name, msg := range map[string]seqMessage{
		"top level": {Seq: maxStructInt + 1},
		"negative":  {Version: -maxStructInt - 1},
		"nested":    {Nested: map[string]uint64{"seq": 1<<64 - 1}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := toStruct(msg)
			require.ErrorContains(t, err, "exceeds 2^53")
		})
	}
}

func TestFromStructNilMessage(t *testing.T) {
	var out seqMessage
	require.NoError(t, fromStruct(nil, &out))
	assert.Zero(t, out)
}
