package statistics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Statistics contains the counters of one catalog reconciliation run. The
// counters are updated by the scanning goroutine and may be read
// concurrently by the web status handler.
type Statistics struct {
	FilesFound   int64
	ImagesFound  int64
	VideosFound  int64
	FilesIndexed int64
	SizeErrors   int64
	WithoutDate  int64
	Pruned       int64
	Commits      int64
	BytesIndexed int64

	// CatalogEntries is the number of catalog rows after the run.
	CatalogEntries int64

	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	FilesPerSecond float64

	Errors []StatError

	mutex sync.RWMutex
}

// StatError represents a per-file failure that was skipped.
type StatError struct {
	FilePath  string
	Operation string
	Error     string
	Timestamp time.Time
}

// NewStatistics returns a new Statistics instance.
func NewStatistics() *Statistics {
	return &Statistics{
		StartTime: time.Now(),
		Errors:    make([]StatError, 0),
	}
}

// IncrementFilesFound increases the count of found media files by 1.
func (s *Statistics) IncrementFilesFound() {
	atomic.AddInt64(&s.FilesFound, 1)
}

// IncrementImagesFound increases the count of found images by 1.
func (s *Statistics) IncrementImagesFound() {
	atomic.AddInt64(&s.ImagesFound, 1)
}

// IncrementVideosFound increases the count of found videos by 1.
func (s *Statistics) IncrementVideosFound() {
	atomic.AddInt64(&s.VideosFound, 1)
}

// IncrementFilesIndexed increases the count of upserted files by 1 and
// returns the new count.
func (s *Statistics) IncrementFilesIndexed() int64 {
	return atomic.AddInt64(&s.FilesIndexed, 1)
}

// IncrementSizeErrors increases the count of files whose size could not be read.
func (s *Statistics) IncrementSizeErrors() {
	atomic.AddInt64(&s.SizeErrors, 1)
}

// IncrementWithoutDate increases the count of files indexed without a date.
func (s *Statistics) IncrementWithoutDate() {
	atomic.AddInt64(&s.WithoutDate, 1)
}

// IncrementCommits increases the count of catalog commits by 1.
func (s *Statistics) IncrementCommits() {
	atomic.AddInt64(&s.Commits, 1)
}

// AddPruned adds n to the count of removed catalog entries.
func (s *Statistics) AddPruned(n int64) {
	atomic.AddInt64(&s.Pruned, n)
}

// AddBytesIndexed adds the given number of bytes to the indexed total.
func (s *Statistics) AddBytesIndexed(bytes int64) {
	atomic.AddInt64(&s.BytesIndexed, bytes)
}

// SetCatalogEntries records the catalog row count after the run.
func (s *Statistics) SetCatalogEntries(n int64) {
	atomic.StoreInt64(&s.CatalogEntries, n)
}

// Indexed returns the number of files written to the catalog so far.
func (s *Statistics) Indexed() int64 {
	return atomic.LoadInt64(&s.FilesIndexed)
}

// PrunedCount returns the number of entries removed so far.
func (s *Statistics) PrunedCount() int64 {
	return atomic.LoadInt64(&s.Pruned)
}

// AddError records a per-file failure.
func (s *Statistics) AddError(filePath, operation, errorMsg string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.Errors = append(s.Errors, StatError{
		FilePath:  filePath,
		Operation: operation,
		Error:     errorMsg,
		Timestamp: time.Now(),
	})
}

// ErrorCount returns the number of recorded per-file failures.
func (s *Statistics) ErrorCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.Errors)
}

// Finalize calculates duration and throughput.
func (s *Statistics) Finalize() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)

	if s.Duration.Seconds() > 0 {
		s.FilesPerSecond = float64(atomic.LoadInt64(&s.FilesIndexed)) / s.Duration.Seconds()
	}
}

// GetDuration returns the total duration of the run.
func (s *Statistics) GetDuration() time.Duration {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.Duration
}

// Snapshot returns the counters as a map suitable for JSON encoding.
func (s *Statistics) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"files_found":   atomic.LoadInt64(&s.FilesFound),
		"images_found":  atomic.LoadInt64(&s.ImagesFound),
		"videos_found":  atomic.LoadInt64(&s.VideosFound),
		"files_indexed": atomic.LoadInt64(&s.FilesIndexed),
		"size_errors":   atomic.LoadInt64(&s.SizeErrors),
		"without_date":  atomic.LoadInt64(&s.WithoutDate),
		"pruned":        atomic.LoadInt64(&s.Pruned),
		"commits":       atomic.LoadInt64(&s.Commits),
		"bytes_indexed": atomic.LoadInt64(&s.BytesIndexed),
		"entries":       atomic.LoadInt64(&s.CatalogEntries),
	}
}

// GetSummary returns a formatted summary of the run.
func (s *Statistics) GetSummary() string {
	s.mutex.RLock()
	duration := s.Duration
	filesPerSecond := s.FilesPerSecond
	s.mutex.RUnlock()

	return fmt.Sprintf(`Collection Index Summary:

Files:
		Found: %d (images: %d, videos: %d)
		Indexed: %d
		Without Date: %d
		Unreadable Size: %d
		Pruned: %d

Catalog:
		Entries: %d
		Commits: %d
		Bytes Indexed: %s

Performance:
		Duration: %v
		Files/Second: %.2f`,
		atomic.LoadInt64(&s.FilesFound),
		atomic.LoadInt64(&s.ImagesFound),
		atomic.LoadInt64(&s.VideosFound),
		atomic.LoadInt64(&s.FilesIndexed),
		atomic.LoadInt64(&s.WithoutDate),
		atomic.LoadInt64(&s.SizeErrors),
		atomic.LoadInt64(&s.Pruned),
		atomic.LoadInt64(&s.CatalogEntries),
		atomic.LoadInt64(&s.Commits),
		formatBytes(atomic.LoadInt64(&s.BytesIndexed)),
		duration,
		filesPerSecond)
}

// GetErrorSummary returns a summary of the per-file failures.
func (s *Statistics) GetErrorSummary() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if len(s.Errors) == 0 {
		return "No errors occurred during scanning"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Errors (%d total):\n", len(s.Errors))
	for i, err := range s.Errors {
		if i >= 10 {
			fmt.Fprintf(&b, "  ... and %d more errors\n", len(s.Errors)-10)
			break
		}
		fmt.Fprintf(&b, "  [%s] %s: %s - %s\n",
			err.Timestamp.Format("15:04:05"),
			err.Operation,
			err.FilePath,
			err.Error)
	}
	return b.String()
}

// formatBytes returns a human-readable string for a byte count.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
