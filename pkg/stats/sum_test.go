package stats

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgurstats/pkg/logger"
	"imgurstats/pkg/store"
)

func TestParseSum(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "0"},
		{"1,234,567", "1234567"},
		{"12.345.678", "12345678"},
		{"98 765 432 109 876 543 210", "98765432109876543210"},
		{"garbage", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSum(tt.in).String())
		})
	}
}

func TestFormatSum(t *testing.T) {
	n, ok := new(big.Int).SetString("98765432109876543210", 10)
	require.True(t, ok)

	assert.Equal(t, "98,765,432,109,876,543,210", FormatSum(n))
	assert.Equal(t, "0", FormatSum(nil))
	assert.Equal(t, "999", FormatSum(big.NewInt(999)))
}

func TestFormatSumLeavesArgumentIntact(t *testing.T) {
	n := big.NewInt(1234567)
	assert.Equal(t, "1,234,567", FormatSum(n))
	assert.Equal(t, "1,234,567", FormatSum(n))
	assert.Equal(t, int64(1234567), n.Int64())
}

func TestSumLedgerLifecycle(t *testing.T) {
	st := newTestStore(t)
	require.True(t, st.Put("alice", store.KeyViewsSum, "1,000"))

	ledger := NewSumLedger(st, logger.NewNopLogger())
	ledger.Init("alice")
	ledger.AddViews("alice", 500)
	ledger.SubViews("alice", 200)

	sum, ok := ledger.Value("alice")
	require.True(t, ok)
	assert.Equal(t, int64(1300), sum.Int64())

	// a second init must not reload over the resident value
	ledger.Init("alice")
	sum, _ = ledger.Value("alice")
	assert.Equal(t, int64(1300), sum.Int64())

	require.True(t, ledger.Save("alice"))
	assert.Equal(t, "1,300", st.Get("alice", store.KeyViewsSum, ""))
	assert.Equal(t, "1,300", ledger.DisplayString("alice"))

	// the resident total survives a save and keeps accumulating
	sum, _ = ledger.Value("alice")
	assert.Equal(t, int64(1300), sum.Int64())
	ledger.AddViews("alice", 3800)
	require.True(t, ledger.Save("alice"))
	assert.Equal(t, "5,100", st.Get("alice", store.KeyViewsSum, ""))
}

func TestSumLedgerUninitialisedScope(t *testing.T) {
	tl := logger.NewTestLogger()
	ledger := NewSumLedger(newTestStore(t), tl)

	ledger.AddViews("bob", 10)

	_, ok := ledger.Value("bob")
	assert.False(t, ok)
	assert.True(t, tl.HasError())
	assert.False(t, ledger.Save("bob"))
}

func TestSumLedgerValueIsCopy(t *testing.T) {
	ledger := NewSumLedger(newTestStore(t), nil)
	ledger.Init("alice")
	ledger.AddViews("alice", 5)

	v, _ := ledger.Value("alice")
	v.SetInt64(100)

	again, _ := ledger.Value("alice")
	assert.Equal(t, int64(5), again.Int64())
}
