/*
 * Copyright 2026 The Preflight Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"bytes"
	htmltemplate "html/template"
	"net/http"
	"time"

	"github.com/flamego/template"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"preflight/graph"
)

// statusCounts are the four headline figures on the status page. Expired is
// independent of verification status, so a number can be counted both
// verified and expired.
type statusCounts struct {
	Total       int
	Verified    int
	NotVerified int
	Expired     int
}

func countStatuses(rows []numberRow) statusCounts {
	var counts statusCounts
	counts.Total = len(rows)
	for _, row := range rows {
		switch row.Status {
		case "VERIFIED":
			counts.Verified++
		case "NOT_VERIFIED":
			counts.NotVerified++
		}
		if row.ExpiryState == graph.ExpiryExpired {
			counts.Expired++
		}
	}

	return counts
}

// generateStatusChart renders the verification breakdown as a pie chart.
func generateStatusChart(counts statusCounts) (string, error) {
	other := counts.Total - counts.Verified - counts.NotVerified

	items := []opts.PieData{
		{Name: "Verified", Value: counts.Verified},
		{Name: "Not Verified", Value: counts.NotVerified},
	}
	if other > 0 {
		items = append(items, opts.PieData{Name: "Other", Value: other})
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Verification Status",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show: opts.Bool(true),
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
		}),
	)
	pie.AddSeries("numbers", items).
		SetSeriesOptions(charts.WithPieChartOpts(opts.PieChart{
			Radius: []string{"40%", "65%"},
		}))

	var buf bytes.Buffer
	if err := pie.Render(&buf); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// StatusPage renders the monitoring overview: headline counts, the pie
// chart, and a per-number expiry card list.
func (con *Console) StatusPage(t template.Template, data template.Data) {
	rows := buildNumberRows(con.snapshotNumbers(), time.Now())
	counts := countStatuses(rows)

	data["Counts"] = counts
	data["Numbers"] = rows
	data["Configured"] = con.credentials().Configured()
	data["IsStatus"] = true

	if counts.Total > 0 {
		chart, err := generateStatusChart(counts)
		if err != nil {
			logger.Error("Failed to generate status chart", "error", err)
		} else {
			data["Chart"] = htmltemplate.HTML(chart)
		}
	}

	t.HTML(http.StatusOK, "status")
}
