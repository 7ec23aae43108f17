package statistics

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	s := NewStatistics()
	s.IncrementFilesFound()
	s.IncrementFilesFound()
	s.IncrementImagesFound()
	s.IncrementVideosFound()
	assert.Equal(t, int64(1), s.IncrementFilesIndexed())
	assert.Equal(t, int64(2), s.IncrementFilesIndexed())
	s.IncrementWithoutDate()
	s.AddPruned(3)
	s.AddBytesIndexed(2048)
	s.SetCatalogEntries(7)
	s.Finalize()

	assert.Equal(t, int64(2), s.Indexed())
	assert.Equal(t, int64(3), s.PrunedCount())
	assert.False(t, s.EndTime.Before(s.StartTime))

	snap := s.Snapshot()
	assert.Equal(t, int64(2), snap["files_found"])
	assert.Equal(t, int64(2048), snap["bytes_indexed"])
	assert.Equal(t, int64(7), snap["entries"])

	summary := s.GetSummary()
	assert.Contains(t, summary, "Found: 2 (images: 1, videos: 1)")
	assert.Contains(t, summary, "Pruned: 3")
	assert.Contains(t, summary, "Entries: 7")
	assert.Contains(t, summary, "Bytes Indexed: 2.0 KB")
}

func TestErrorSummary(t *testing.T) {
	s := NewStatistics()
	assert.Equal(t, "No errors occurred during scanning", s.GetErrorSummary())

	for i := 0; i < 12; i++ {
		s.AddError(fmt.Sprintf("/p/%d.jpg", i), "stat", "permission denied")
	}
	assert.Equal(t, 12, s.ErrorCount())

	summary := s.GetErrorSummary()
	assert.Contains(t, summary, "Errors (12 total):")
	assert.Contains(t, summary, "stat: /p/0.jpg - permission denied")
	assert.Contains(t, summary, "... and 2 more errors")
	assert.NotContains(t, summary, "/p/11.jpg")
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:              "0 B",
		1023:           "1023 B",
		1024:           "1.0 KB",
		1048576:        "1.0 MB",
		3 * 1073741824: "3.0 GB",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatBytes(in), "formatBytes(%d)", in)
	}
}
