package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInitExportsLabelCombinations(t *testing.T) {
	Init()

	assert.Equal(t, 3, testutil.CollectAndCount(ScanRunsTotal))
	assert.Equal(t, 2, testutil.CollectAndCount(FilesIndexedTotal))
	assert.Equal(t, 2, testutil.CollectAndCount(CatalogCommitsTotal))
	assert.Equal(t, 2, testutil.CollectAndCount(ChartsRenderedTotal))
}

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(FilesPrunedTotal)
	FilesPrunedTotal.Add(3)
	assert.Equal(t, before+3, testutil.ToFloat64(FilesPrunedTotal))

	c := FileFailuresTotal.WithLabelValues("stat")
	before = testutil.ToFloat64(c)
	c.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
