package loadgen

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Render writes the run summary, the top rows of the standings and, when
// the competition was finalized, the winners.
func Render(w io.Writer, rep *Report, top int) error {
	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	summary.SetTitle("Run " + rep.CompetitionID)
	summary.AppendRows([]table.Row{
		{"participants", len(rep.Participants)},
		{"generated", rep.Stats.Generated},
		{"accepted", rep.Stats.Accepted},
		{"duplicate", rep.Stats.Duplicate},
		{"rejected", rep.Stats.Rejected},
		{"failed", rep.Stats.Failed},
		{"backpressure", rep.Stats.Backpressure},
		{"events logged", rep.Standings.Events},
		{"submit", rep.Stats.Submit.String()},
		{"settle", rep.Stats.Settle.String()},
		{"throughput", fmt.Sprintf("%.0f/s", throughput(rep.Stats))},
	})
	summary.Render()

	rows := rep.Standings.Entries
	if top > 0 && len(rows) > top {
		rows = rows[:top]
	}
	st := table.NewWriter()
	st.SetOutputMirror(w)
	st.SetTitle("Standings")
	st.AppendHeader(table.Row{"Rank", "Participant", "Score", "Expected", ""})
	st.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	for i, e := range rows {
		expected, mark := "-", "x"
		if i < len(rep.Expected) {
			expected = fmt.Sprint(rep.Expected[i].Score)
			if rep.Expected[i].ParticipantID == e.ParticipantID && rep.Expected[i].Score == e.Score {
				mark = "ok"
			}
		}
		st.AppendRow(table.Row{e.Rank, e.ParticipantID, e.Score, expected, mark})
	}
	st.Render()

	for _, m := range rep.Mismatches {
		if _, err := fmt.Fprintln(w, "mismatch:", m); err != nil {
			return err
		}
	}

	if rep.Finalized != nil {
		wt := table.NewWriter()
		wt.SetOutputMirror(w)
		wt.SetTitle("Winners")
		wt.AppendHeader(table.Row{"Rank", "Participant", "Score", "Share", "Prize"})
		for _, win := range rep.Finalized.Competition.Winners {
			wt.AppendRow(table.Row{win.Rank, win.ParticipantID, win.Score, win.Share, win.Prize.String()})
		}
		wt.AppendFooter(table.Row{"", "", "", "forfeited", rep.Finalized.Forfeited.String()})
		wt.Render()
	}
	return nil
}

func throughput(s Stats) float64 {
	if s.Submit <= 0 {
		return 0
	}
	return float64(s.Generated) / s.Submit.Seconds()
}
