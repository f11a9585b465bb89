package main

import (
	"fmt"
	"sort"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/ayusman/fingerspell/internal/app"
	"github.com/ayusman/fingerspell/internal/dataset"
	"github.com/ayusman/fingerspell/internal/store"
)

// labelProgress shows one progress bar per label. Progress arrives in
// directory order, so each label's images are contiguous.
type labelProgress struct {
	label string
	bar   *pterm.ProgressbarPrinter
}

func (p *labelProgress) update(pr dataset.Progress) {
	if pr.Label != p.label || p.bar == nil {
		p.stop()
		bar, err := pterm.DefaultProgressbar.WithTotal(pr.Total).WithTitle(pr.Label).Start()
		if err != nil {
			return
		}
		p.label, p.bar = pr.Label, bar
	}
	p.bar.Increment()
}

func (p *labelProgress) stop() {
	if p.bar != nil {
		p.bar.Stop()
		p.bar = nil
	}
}

func datasetAction(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	defer log.Close()

	st, err := store.New(cfg.DBPath())
	if err != nil {
		log.WithError(err).Warn("run history unavailable")
		st = nil
	} else {
		defer st.Close()
	}

	progress := &labelProgress{}
	stats, run, err := app.BuildDataset(c.Context, cfg, st, app.DatasetJob{
		Root:       c.String(flagRoot),
		Out:        c.String(flagOut),
		OnProgress: progress.update,
	}, log)
	progress.stop()
	if err != nil {
		return err
	}

	labels := make([]string, 0, len(stats.PerLabel))
	for l := range stats.PerLabel {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	data := pterm.TableData{{"label", "rows"}}
	for _, l := range labels {
		data = append(data, []string{l, fmt.Sprint(stats.PerLabel[l])})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}

	pterm.Success.Printfln("%d rows from %d images written to %s (%d zero-filled, %d skipped)",
		stats.Rows, stats.Files, c.String(flagOut), stats.ZeroFilled, stats.Skipped())
	if run != nil {
		pterm.Info.Printfln("run %s recorded", run.ID)
	}
	return nil
}
