package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/itohio/gobsr/pkg/bsr"
	"github.com/itohio/gobsr/pkg/convert"
	"github.com/itohio/gobsr/pkg/viewport"
)

// exportCurrent saves the visible time range of the selected tab as WAV.
func (a *appState) exportCurrent() {
	doc := a.current()
	if doc == nil {
		dialog.ShowInformation("Export", "No file loaded", a.window)
		return
	}
	start, end := frameSpan(doc.rec, doc.scope.XRange())
	if end <= start {
		dialog.ShowInformation("Export", "The visible range holds no samples", a.window)
		return
	}

	d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.window)
			return
		}
		if wc == nil {
			return
		}
		path := wc.URI().Path()
		_ = wc.Close()
		a.exportRange(doc.rec, path, start, end)
	}, a.window)
	base := strings.TrimSuffix(filepath.Base(doc.rec.Path()), filepath.Ext(doc.rec.Path()))
	d.SetFileName(base + "_view.wav")
	d.SetFilter(storage.NewExtensionFileFilter([]string{".wav"}))
	d.Show()
}

func (a *appState) exportRange(rec *bsr.Recording, path string, start, end int) {
	ctx, cancel := context.WithCancel(context.Background())
	dlg := dialog.NewCustom("Exporting "+filepath.Base(path), "Cancel", widget.NewProgressBarInfinite(), a.window)
	dlg.SetOnClosed(cancel)
	dlg.Show()

	go func() {
		info, err := convert.ExportFile(ctx, rec, path, start, end)
		fyne.Do(func() {
			dlg.Hide()
			if err != nil {
				a.logger.Error("[explorer] export failed", zap.String("path", path), zap.Error(err))
				dialog.ShowError(fmt.Errorf("failed to export: %w", err), a.window)
				return
			}
			a.setStatus(fmt.Sprintf("Exported %d frames to %s", info.Frames, filepath.Base(path)))
		})
	}()
}

// frameSpan converts a visible time range into a frame range of rec.
func frameSpan(rec *bsr.Recording, r viewport.Range) (start, end int) {
	axis := rec.TimeAxis()
	return axis.Index(r.Start), axis.Index(r.End)
}
