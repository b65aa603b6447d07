package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/banshee-data/ocean.telemetry/internal/nortek"
)

func newRecordsCmd(a *app) *cobra.Command {
	var showFields bool
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List the record types the decoder understands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := a.sessionOptions().Registry
			if reg == nil {
				reg = nortek.DefaultRegistry()
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tWORDS\tSIZE_FIELD\tFIELDS")
			for _, id := range reg.IDs() {
				d, err := reg.Lookup(id)
				if err != nil {
					return err
				}
				words := "varies"
				if d.Words != 0 {
					words = fmt.Sprint(d.Words)
				}
				names := d.FieldNames()
				fields := fmt.Sprint(len(names))
				if showFields {
					fields = strings.Join(names, ",")
				}
				fmt.Fprintf(tw, "0x%02X\t%s\t%s\t%t\t%s\n", id, d.Name, words, d.HasSizeField, fields)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&showFields, "fields", false, "list field names instead of counts")
	return cmd
}
