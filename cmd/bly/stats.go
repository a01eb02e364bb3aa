package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dshills/bly/internal/dispatcher"
	"github.com/dshills/bly/internal/dispatcher/hook"
)

// writeStats prints dispatcher totals, then one row per action with the
// dispatcher latency percentiles and the end-to-end average from timing,
// which also covers the results pass.
func writeStats(w io.Writer, m *dispatcher.Metrics, timing *hook.TimingHook) error {
	if m == nil {
		return nil
	}
	snap := m.Snapshot()
	all := m.Latency()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "dispatches %d\terrors %d\tpanics %d\thandlers %d\n",
		snap.TotalDispatches, snap.TotalErrors, snap.TotalPanics, snap.TotalHandlers)
	fmt.Fprintf(tw, "avg %s\tp50 %s\tp95 %s\tp99 %s\n",
		round(snap.AverageDuration), round(all.P50), round(all.P95), round(all.P99))
	fmt.Fprintln(tw)

	endToEnd := make(map[string]time.Duration)
	if timing != nil {
		for _, st := range timing.Stats() {
			endToEnd[st.Action] = st.Average()
		}
	}

	fmt.Fprintln(tw, "ACTION\tCOUNT\tERRORS\tP50\tP95\tP99\tMAX\tEND-TO-END")
	for _, am := range m.TopActions(snap.ActionCount) {
		lat, _ := m.ActionLatency(am.Name)
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			am.Name, am.DispatchCount, am.ErrorCount,
			round(lat.P50), round(lat.P95), round(lat.P99), round(am.MaxDuration),
			round(endToEnd[am.Name]))
	}
	return tw.Flush()
}

func round(d time.Duration) time.Duration {
	return d.Round(time.Microsecond)
}
