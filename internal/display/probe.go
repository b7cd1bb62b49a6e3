package display

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/woozymasta/gsdash/internal/probe"
)

// Probes writes the results of direct game server queries.
func Probes(w io.Writer, results []probe.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tADDRESS\tSTATUS\tPLAYERS\tPING\tVERSION")

	up := 0
	for _, r := range results {
		name := r.Server.Name
		if name == "" {
			name = "-"
		}
		addr := fmt.Sprintf("%s:%d", r.Server.Address, r.Server.Port)

		if r.Err != nil || r.Status == nil {
			msg := "unreachable"
			if r.Err != nil {
				msg = r.Err.Error()
			}
			_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t\t\t\n", r.Server.ID, name, addr, msg)
			continue
		}

		up++
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			r.Server.ID, name, addr, StatusText(*r.Status),
			r.Status.Players, r.Status.MaxPlayers,
			PingText(r.Status.Ping), r.Status.Version)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "reachable: %d/%d\n", up, len(results))

	return nil
}
