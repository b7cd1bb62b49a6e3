package display

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/woozymasta/gsdash/internal/models"
)

const barSlots = 10

// Bar draws a fixed width text bar for a width percentage in [0,100].
func Bar(width int) string {
	filled := (width*barSlots + 50) / 100
	filled = min(max(filled, 0), barSlots)

	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", barSlots-filled) + "]"
}

// PingText renders ping as "42ms excellent ||||", or "" when there is nothing to show.
func PingText(ping int64) string {
	info, ok := Ping(ping)
	if !ok {
		return ""
	}

	return fmt.Sprintf("%dms %s %s", ping, info.Quality, strings.Repeat("|", info.Bars))
}

// StatusText renders the online flag.
func StatusText(st models.ServerStatus) string {
	if st.Online {
		return "online"
	}

	return "offline"
}

// Servers writes the public server table.
func Servers(w io.Writer, servers []models.ServerWithStatus) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tTYPE\tADDRESS\tSTATUS\tPLAYERS\tLOAD\tPING\tVERSION")

	for _, s := range sorted(servers) {
		load := PlayerLoad(s.Status.Players, s.Status.MaxPlayers)
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s:%d\t%s\t%d/%d\t%s %d%%\t%s\t%s\n",
			s.ID, s.Name, s.Type, s.Address, s.Port,
			StatusText(s.Status),
			s.Status.Players, s.Status.MaxPlayers,
			Bar(load.Width), load.Percent,
			PingText(s.Status.Ping),
			versionOf(s),
		)
	}

	return tw.Flush()
}

// Header writes the dashboard summary line.
func Header(w io.Writer, servers []models.ServerWithStatus) {
	sum := Summarize(servers)
	_, _ = fmt.Fprintf(w, "servers: %d  online: %d  avg latency: %dms  minecraft: %d  cs2: %d\n",
		sum.Total, sum.Online, sum.AverageLatency,
		sum.ByType[models.TypeMinecraft], sum.ByType[models.TypeCS2])
}

// Server writes the detail view of one server. country may be empty.
func Server(w io.Writer, s models.ServerWithStatus, country string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	load := PlayerLoad(s.Status.Players, s.Status.MaxPlayers)

	rows := [][2]string{
		{"ID", fmt.Sprint(s.ID)},
		{"Name", s.Name},
		{"Type", s.Type},
		{"Address", fmt.Sprintf("%s:%d", s.Address, s.Port)},
		{"Country", country},
		{"Status", StatusText(s.Status)},
		{"Players", fmt.Sprintf("%d/%d %s %d%% (%s)", s.Status.Players, s.Status.MaxPlayers, Bar(load.Width), load.Percent, load.Capacity)},
		{"Ping", PingText(s.Status.Ping)},
		{"Version", versionOf(s)},
		{"Download", s.DownloadURL},
		{"Description", s.Description},
		{"Checked", timeText(s.Status.LastUpdated)},
		{"Updated", timeText(s.UpdatedAt)},
	}
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		_, _ = fmt.Fprintf(tw, "%s:\t%s\n", r[0], r[1])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if s.Changelog != "" {
		_, _ = fmt.Fprintf(w, "\nChangelog:\n%s\n", strings.TrimRight(s.Changelog, "\n"))
	}

	return nil
}

// AdminServers writes the management table (records without status).
func AdminServers(w io.Writer, servers []models.Server) error {
	list := append([]models.Server(nil), servers...)
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tTYPE\tADDRESS\tVERSION\tUPDATED")
	for _, s := range list {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s:%d\t%s\t%s\n",
			s.ID, s.Name, s.Type, s.Address, s.Port, s.Version, timeText(s.UpdatedAt))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	counts := CountByType(servers)
	_, _ = fmt.Fprintf(w, "total: %d  minecraft: %d  cs2: %d\n",
		len(servers), counts[models.TypeMinecraft], counts[models.TypeCS2])

	return nil
}

func sorted(servers []models.ServerWithStatus) []models.ServerWithStatus {
	list := append([]models.ServerWithStatus(nil), servers...)
	sort.SliceStable(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	return list
}

// versionOf prefers the version reported by the live status.
func versionOf(s models.ServerWithStatus) string {
	if s.Status.Version != "" {
		return s.Status.Version
	}

	return s.Version
}

func timeText(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Local().Format(time.DateTime)
}

// WatchInfo is the connection and schedule state shown under the watch table.
type WatchInfo struct {
	LastUpdated  time.Time
	NextRefresh  time.Duration
	Err          error
	RetryCount   int
	MaxRetries   int
	Online       bool
	Reconnecting bool
	AutoRefresh  bool
	Stale        bool
	Exhausted    bool
}

// Footer writes the status lines of the watch view.
func Footer(w io.Writer, info WatchInfo) {
	updated := timeText(info.LastUpdated)
	if updated == "" {
		updated = "never"
	}
	if info.Stale {
		updated += " (stale)"
	}

	auto := "paused"
	if info.AutoRefresh {
		auto = fmt.Sprintf("on, next in %s", info.NextRefresh.Round(time.Second))
	}
	_, _ = fmt.Fprintf(w, "updated: %s  auto-refresh: %s\n", updated, auto)

	switch {
	case !info.Online && info.Reconnecting:
		_, _ = fmt.Fprintln(w, "offline: reconnecting...")
	case !info.Online:
		_, _ = fmt.Fprintln(w, "offline: waiting for connection")
	}

	if info.Err != nil {
		_, _ = fmt.Fprintf(w, "error: %v\n", info.Err)
		if info.Exhausted {
			_, _ = fmt.Fprintf(w, "gave up after %d attempts, press r to retry\n", info.RetryCount)
		} else if info.RetryCount > 0 {
			_, _ = fmt.Fprintf(w, "retry %d/%d\n", info.RetryCount, info.MaxRetries)
		}
	}

	_, _ = fmt.Fprintln(w, "keys: r refresh, p pause/resume, q quit")
}
