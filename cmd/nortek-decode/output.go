package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/ocean.telemetry/internal/model"
	"github.com/banshee-data/ocean.telemetry/internal/session"
	"github.com/banshee-data/ocean.telemetry/internal/store"
	"github.com/banshee-data/ocean.telemetry/internal/units"
)

// displayOptions controls how channel tables are printed.
type displayOptions struct {
	verbose  bool
	speed    string // units.MPS, units.CMPS, ...
	timezone string
}

func printResult(w io.Writer, res *session.Result, d displayOptions) {
	if res.Model == nil {
		fmt.Fprintf(w, "%s: failed: %v\n", res.Source, res.Err)
		return
	}
	fmt.Fprintf(w, "%s: %s\n", res.Source, res.Summary)
	if !d.verbose {
		return
	}

	attrs := res.Model.Attributes()
	for _, k := range res.Model.AttributeKeys() {
		fmt.Fprintf(w, "  %-24s %s\n", k, attrs[k])
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  CHANNEL\tTYPE\tUNIT\tTIMEBASE\tROWS\tFIRST\tMIN\tMEAN\tMAX")
	for i, ch := range res.Model.ListChannels() {
		h := model.Handle(i)
		st := store.ChannelStats(res.Model, h)
		unit := ch.Unit
		conv := func(v float64) float64 { return v }
		if ch.Unit == units.MetresPerSecond {
			unit = units.SpeedLabel(d.speed)
			conv = func(v float64) float64 { return units.ConvertSpeed(v, d.speed) }
		}
		first := "-"
		for t := range res.Model.ReadChannel(h) {
			first = formatTime(t, d.timezone)
			break
		}
		if st.N == 0 {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%d\t%s\t-\t-\t-\n",
				ch.Name, ch.Type, unit, ch.Timebase, ch.Rows, first)
			continue
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%d\t%s\t%.4g\t%.4g\t%.4g\n",
			ch.Name, ch.Type, unit, ch.Timebase, ch.Rows, first,
			conv(st.Min), conv(st.Mean), conv(st.Max))
	}
	tw.Flush()
}

func formatTime(t time.Time, tz string) string {
	local, err := units.ConvertTime(t, tz)
	if err != nil {
		local = t
	}
	return local.Format(time.RFC3339)
}
