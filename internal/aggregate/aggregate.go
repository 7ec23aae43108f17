// Package aggregate turns catalog rows into periodic and cumulative size
// series bucketed by calendar period.
package aggregate

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/jaragunde/picture-collection-tools/internal/catalog"
	"github.com/jaragunde/picture-collection-tools/internal/dateparse"
)

// GroupBy is the bucket granularity.
type GroupBy string

const (
	GroupByMonth GroupBy = "month"
	GroupByYear  GroupBy = "year"
)

// ParseGroupBy validates a granularity name. The empty string means month.
func ParseGroupBy(s string) (GroupBy, error) {
	switch GroupBy(s) {
	case "", GroupByMonth:
		return GroupByMonth, nil
	case GroupByYear:
		return GroupByYear, nil
	default:
		return "", fmt.Errorf("invalid group_by %q (valid: month, year)", s)
	}
}

// Layout returns the time layout of the bucket labels.
func (g GroupBy) Layout() string {
	if g == GroupByYear {
		return "2006"
	}
	return "2006-01"
}

// Label returns the axis label for the granularity ("Month" or "Year").
func (g GroupBy) Label() string {
	if g == GroupByYear {
		return "Year"
	}
	return "Month"
}

// Adjective returns "Monthly" or "Yearly".
func (g GroupBy) Adjective() string {
	return g.Label() + "ly"
}

const (
	// TotalGroup is the single group used when directory splitting is off.
	TotalGroup = "Total"
	// RootGroup is the group of files directly at the catalog root.
	RootGroup = "Root"

	bytesPerMB = 1024 * 1024
)

// Options control filtering and grouping.
type Options struct {
	GroupBy GroupBy
	// Before and After are exclusive bounds; nil disables the bound.
	Before *time.Time
	After  *time.Time
	// SplitByDir groups by containing directory relative to Root.
	SplitByDir bool
	Root       string
}

// Series is the aggregated output. Periodic and Cumulative hold one value
// per key, in Keys order, for every group in Groups.
type Series struct {
	GroupBy    GroupBy              `json:"group_by"`
	Keys       []string             `json:"keys"`
	Groups     []string             `json:"groups"`
	Periodic   map[string][]float64 `json:"periodic"`
	Cumulative map[string][]float64 `json:"cumulative"`

	// Undated counts rows whose date could not be parsed.
	Undated int `json:"undated"`
	// Filtered counts rows dropped by the date bounds.
	Filtered int `json:"filtered"`
}

// Empty reports whether no row survived parsing and filtering.
func (s *Series) Empty() bool {
	return len(s.Keys) == 0
}

// Grouped reports whether more than the single total group is present.
func (s *Series) Grouped() bool {
	return len(s.Groups) > 1 || (len(s.Groups) == 1 && s.Groups[0] != TotalGroup)
}

// cell addresses one (bucket, group) sum.
type cell struct {
	bucket string
	group  string
}

// sums is a two-key byte accumulator. Absent cells read as zero.
type sums map[cell]int64

func (s sums) add(bucket, group string, n int64) {
	s[cell{bucket, group}] += n
}

func (s sums) get(bucket, group string) int64 {
	return s[cell{bucket, group}]
}

// Aggregate buckets rows by period and group.
func Aggregate(rows []catalog.Row, opts Options) *Series {
	groupBy := opts.GroupBy
	if groupBy == "" {
		groupBy = GroupByMonth
	}

	series := &Series{
		GroupBy:    groupBy,
		Keys:       []string{},
		Groups:     []string{},
		Periodic:   map[string][]float64{},
		Cumulative: map[string][]float64{},
	}

	acc := sums{}
	buckets := map[string]struct{}{}
	groups := map[string]struct{}{}

	for _, row := range rows {
		t, ok := dateparse.Parse(row.DateTaken)
		if !ok {
			series.Undated++
			continue
		}
		if opts.Before != nil && !t.Before(*opts.Before) {
			series.Filtered++
			continue
		}
		if opts.After != nil && !t.After(*opts.After) {
			series.Filtered++
			continue
		}

		bucket := t.Format(groupBy.Layout())
		group := TotalGroup
		if opts.SplitByDir {
			group = directoryGroup(opts.Root, row.Path)
		}

		acc.add(bucket, group, row.Size)
		buckets[bucket] = struct{}{}
		groups[group] = struct{}{}
	}

	series.Keys = sortedKeys(buckets)
	series.Groups = sortedKeys(groups)

	for _, group := range series.Groups {
		periodic := make([]float64, len(series.Keys))
		cumulative := make([]float64, len(series.Keys))
		var running int64
		for i, key := range series.Keys {
			n := acc.get(key, group)
			running += n
			periodic[i] = float64(n) / bytesPerMB
			cumulative[i] = float64(running) / bytesPerMB
		}
		series.Periodic[group] = periodic
		series.Cumulative[group] = cumulative
	}

	return series
}

// directoryGroup returns the directory of path relative to root, with
// forward slashes, or RootGroup for files directly under root. Paths outside
// root keep their absolute directory.
func directoryGroup(root, path string) string {
	dir := filepath.Dir(path)
	if root == "" {
		return filepath.ToSlash(dir)
	}
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == ".." || (len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator)) {
		return filepath.ToSlash(dir)
	}
	if rel == "." {
		return RootGroup
	}
	return filepath.ToSlash(rel)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
