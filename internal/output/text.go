package output

import (
	"bufio"
	"fmt"
	"io"

	"github.com/jaragunde/picture-collection-tools/internal/aggregate"
)

// WriteText prints the values the charts would show. Each line is
// "key: value MB" with two decimals. When the series is split by
// directory every group gets its own block headed by "[group]".
func WriteText(w io.Writer, series *aggregate.Series) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "Data that would be plotted (Cumulative):")
	writeBlock(bw, series, series.Cumulative)

	fmt.Fprintf(bw, "\nData that would be plotted (%s):\n", series.GroupBy.Adjective())
	writeBlock(bw, series, series.Periodic)

	return bw.Flush()
}

func writeBlock(w io.Writer, series *aggregate.Series, values map[string][]float64) {
	grouped := series.Grouped()
	for _, group := range series.Groups {
		if grouped {
			fmt.Fprintf(w, "[%s]\n", group)
		}
		row := values[group]
		for i, key := range series.Keys {
			var v float64
			if i < len(row) {
				v = row[i]
			}
			fmt.Fprintf(w, "%s: %.2f MB\n", key, v)
		}
	}
}
