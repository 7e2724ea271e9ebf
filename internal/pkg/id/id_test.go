package id

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_SortsInCreationOrder(t *testing.T) {
	ids := make([]string, 500)
	for i := range ids {
		ids[i] = New()
	}
	assert.True(t, sort.StringsAreSorted(ids))
	assert.Len(t, ids[0], 26)
	assert.NotEqual(t, ids[0], ids[1])
}
