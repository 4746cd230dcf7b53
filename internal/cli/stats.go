// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// stats.go - The "loom stats" command: spend and savings reporting from
// persisted session spend records.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/halcyonforge/loom/internal/config"
	"github.com/halcyonforge/loom/internal/telemetry"
	"github.com/halcyonforge/loom/internal/util"
)

// HandleStats prints the spend report for the last N days.
func HandleStats(cfg *config.Config, parser *ArgParser) error {
	days := parser.FlagIntOrDefault("days", 30)
	if days < 1 {
		return NewUsageError("stats", "--days must be positive")
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		return err
	}
	tracker, err := telemetry.NewTracker(filepath.Join(dataDir, "spend"))
	if err != nil {
		return fmt.Errorf("open spend tracker: %w", err)
	}

	// Retention pruning happens on read so stale records never pile up.
	if cfg.Storage.SpendRetentionDays > 0 {
		if err := tracker.Prune(cfg.Storage.SpendRetentionDays); err != nil {
			fmt.Fprintf(os.Stderr, "%s prune spend records: %v\n",
				WarningStyle.Render("[Warning]"), err)
		}
	}

	trends := tracker.GetTrends(days)

	if parser.BoolFlag("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(trends)
	}

	printTrends(trends)
	return nil
}

func printTrends(trends *telemetry.Trends) {
	fmt.Println()
	fmt.Println(TitleStyle.Render(fmt.Sprintf("Spend report, last %d days", trends.Days)))
	fmt.Println(RenderSeparator(50))
	fmt.Println(RenderLabel("Total cost:", util.FloatToStr(trends.TotalCostCents)+"¢"))
	fmt.Println(RenderLabel("Saved:", util.FloatToStr(trends.TotalSavedCents)+"¢ vs frontier"))

	if len(trends.SourceBreakdown) > 0 {
		fmt.Println()
		fmt.Println(TitleStyle.Render("By source"))
		tags := make([]string, 0, len(trends.SourceBreakdown))
		for tag := range trends.SourceBreakdown {
			tags = append(tags, tag)
		}
		sort.Strings(tags)
		for _, tag := range tags {
			fmt.Println(RenderLabel(tag, util.FloatToStr(trends.SourceBreakdown[tag])+"¢"))
		}
	}

	if len(trends.DailyBreakdown) > 0 {
		fmt.Println()
		fmt.Println(TitleStyle.Render("By day"))
		fmt.Printf("%s %s %s %s\n",
			DimStyle.Render(util.PadRight("DATE", 12)),
			DimStyle.Render(util.PadRight("REQUESTS", 9)),
			DimStyle.Render(util.PadRight("COST", 10)),
			DimStyle.Render("SAVED"))
		for _, day := range trends.DailyBreakdown {
			fmt.Printf("%s %s %s %s\n",
				ValueStyle.Render(util.PadRight(day.Date.Format("2006-01-02"), 12)),
				ValueStyle.Render(util.PadRight(util.IntToStr(day.RequestCount), 9)),
				ValueStyle.Render(util.PadRight(util.FloatToStr(day.CostCents)+"¢", 10)),
				SuccessStyle.Render(util.FloatToStr(day.SavedCents)+"¢"))
		}
	}

	if trends.TotalCostCents == 0 && len(trends.DailyBreakdown) == 0 {
		fmt.Println()
		fmt.Println(DimStyle.Render("[No recorded spend in this window]"))
	}
	fmt.Println()
}
