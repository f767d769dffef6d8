package particles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardTable(t *testing.T) {
	tbl := NewStandardTable()

	gamma, ok := tbl.Find("gamma")
	require.True(t, ok)
	assert.Equal(t, 22, gamma.PDG)
	assert.False(t, gamma.IsAdjoint())

	adj, ok := tbl.Find("adj_e-")
	require.True(t, ok)
	assert.True(t, adj.IsAdjoint())
	assert.Equal(t, 11, adj.PDG)
	assert.Equal(t, "e-", ForwardName(adj.Name))

	alpha, ok := tbl.Find(AdjointName("alpha"))
	require.True(t, ok)
	assert.Equal(t, TypeAdjointNucleus, alpha.Type)
	assert.True(t, alpha.IsNucleus())
	assert.Equal(t, 4, alpha.BaryonNumber)
	assert.Equal(t, 1000020040, alpha.PDG)

	proton, _ := tbl.Find("proton")
	assert.False(t, proton.IsNucleus(), "a proton is a baryon, not a composite nucleus")

	_, ok = tbl.Find("graviton")
	assert.False(t, ok)
}

func TestTableInsert(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.InsertWithAdjoint(&Definition{Name: "X", PDG: 99, Type: TypeBaryon}))
	assert.Error(t, tbl.Insert(&Definition{Name: "X"}))
	assert.Error(t, tbl.Insert(&Definition{}))
	assert.Equal(t, []string{"X", "adj_X"}, tbl.Names())
}
