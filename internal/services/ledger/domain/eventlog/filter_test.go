package eventlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/louisbranch/objectledger/internal/platform/errors"
)

func TestParseFilterEmpty(t *testing.T) {
	filter, err := ParseFilter("   ")
	require.NoError(t, err)
	assert.True(t, filter.IsZero())
	assert.True(t, filter.Match(testEvent("a", "1", 1)))
	assert.Equal(t, SQLCondition{}, filter.SQL())
}

func TestFilterMatch(t *testing.T) {
	created := testEvent("proposal.created", "p1", 1)
	created.Seq = 1
	vote := testEvent("vote.cast", "p2", 3)
	vote.Seq = 4

	tests := []struct {
		filter  string
		created bool
		vote    bool
	}{
		{`kind = "vote.cast"`, false, true},
		{`kind != "vote.cast"`, true, false},
		{`entity_id = "p1" OR entity_id = "p2"`, true, true},
		{`kind = "vote.cast" AND entity_id = "p1"`, false, false},
		{`seq > 1`, false, true},
		{`tx_seq <= 1`, true, false},
		{`NOT kind = "vote.cast"`, true, false},
		{`ts >= timestamp("2026-03-01T12:00:02Z")`, false, true},
		{`sender = "0xabc"`, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			filter, err := ParseFilter(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.created, filter.Match(created))
			assert.Equal(t, tt.vote, filter.Match(vote))
		})
	}
}

func TestFilterSQL(t *testing.T) {
	filter, err := ParseFilter(`kind = "vote.cast" AND seq > 10`)
	require.NoError(t, err)

	cond := filter.SQL()
	assert.Equal(t, "(kind = ? AND seq > ?)", cond.Clause)
	assert.Equal(t, []any{"vote.cast", int64(10)}, cond.Params)
}

func TestFilterSQLTimestamp(t *testing.T) {
	filter, err := ParseFilter(`ts < timestamp("2026-03-01T12:00:00Z")`)
	require.NoError(t, err)

	cond := filter.SQL()
	assert.Equal(t, "timestamp_ms < ?", cond.Clause)
	assert.Equal(t, []any{testTime.UnixMilli()}, cond.Params)
}

func TestParseFilterRejectsUnknownField(t *testing.T) {
	_, err := ParseFilter(`owner = "x"`)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument))
}
