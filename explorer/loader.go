package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/itohio/gobsr/pkg/bsr"
	"github.com/itohio/gobsr/pkg/config"
	"github.com/itohio/gobsr/pkg/convert"
)

// progressFunc reports a loading stage, p in [0, 1].
type progressFunc func(p float64, stage string)

// openFile loads path in the background behind a cancellable progress
// dialog and adds it as a new tab. opts override the configured channel
// count and sample rate.
func (a *appState) openFile(path string, opts ...bsr.Option) {
	name := filepath.Base(path)
	ctx, cancel := context.WithCancel(context.Background())

	bar := widget.NewProgressBar()
	stage := widget.NewLabel("Loading BSR file...")
	dlg := dialog.NewCustom("Loading "+name, "Cancel", container.NewVBox(stage, bar), a.window)
	dlg.SetOnClosed(cancel)
	dlg.Show()
	a.setStatus(fmt.Sprintf("Loading %s...", name))

	cfg := *a.cfg
	progress := func(p float64, text string) {
		fyne.Do(func() {
			bar.SetValue(p)
			stage.SetText(text)
		})
	}

	go func() {
		doc, err := a.load(ctx, path, &cfg, progress, opts...)
		if err == nil && ctx.Err() != nil {
			// Cancelled after the last stage
			err = errors.Join(ctx.Err(), doc.close())
			doc = nil
		}

		fyne.Do(func() {
			dlg.Hide()
			switch {
			case errors.Is(err, context.Canceled):
				a.logger.Info("[explorer] loading cancelled", zap.String("path", path))
				a.setStatus("Loading cancelled")
				a.updateWelcome()
			case err != nil:
				a.logger.Error("[explorer] loading failed", zap.String("path", path), zap.Error(err))
				a.setStatus("Error loading file")
				dialog.ShowError(fmt.Errorf("failed to load %s: %w", name, err), a.window)
			case a.closing:
				_ = doc.close()
			default:
				a.addDocument(doc)
				doc.start()
			}
		})
	}()
}

// load runs the loading stages: check, map, bind, full-view downsample.
func (a *appState) load(ctx context.Context, path string, cfg *config.Config, progress progressFunc, opts ...bsr.Option) (*document, error) {
	progress(0.1, "Checking file...")
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", bsr.ErrIO, err)
	}

	progress(0.3, "Mapping file...")
	opts = append([]bsr.Option{
		bsr.WithChannels(len(cfg.Channels)),
		bsr.WithSampleRate(cfg.SampleRate),
		bsr.WithLogger(a.logger),
	}, opts...)
	rec, err := bsr.OpenContext(ctx, path, opts...)
	if err != nil {
		return nil, err
	}

	progress(0.6, "Preparing plots...")
	var doc *document
	fyne.DoAndWait(func() {
		doc = newDocument(rec, cfg, a.logger)
	})

	progress(0.8, "Downsampling...")
	if _, err := doc.resampler.Full(ctx); err != nil {
		return nil, errors.Join(err, doc.close())
	}

	progress(1, "Done")
	a.logger.Info("[explorer] loaded", zap.String("summary", rec.Summary()))
	return doc, nil
}

func (a *appState) showImportDialog() {
	d := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.window)
			return
		}
		if rc == nil {
			return
		}
		path := rc.URI().Path()
		_ = rc.Close()
		a.importWAV(path)
	}, a.window)
	d.SetFilter(storage.NewExtensionFileFilter([]string{".wav", ".WAV"}))
	d.Show()
}

// importWAV converts a PCM WAV file into a recording next to it and opens
// the result with the WAV channel count and sample rate.
func (a *appState) importWAV(path string) {
	out := strings.TrimSuffix(path, filepath.Ext(path)) + ".bsr"
	run := func() {
		ctx, cancel := context.WithCancel(context.Background())
		dlg := dialog.NewCustom("Importing "+filepath.Base(path), "Cancel", widget.NewProgressBarInfinite(), a.window)
		dlg.SetOnClosed(cancel)
		dlg.Show()

		go func() {
			info, err := convert.ImportFile(ctx, path, out)
			fyne.Do(func() {
				dlg.Hide()
				if err != nil {
					a.logger.Error("[explorer] import failed", zap.String("path", path), zap.Error(err))
					dialog.ShowError(fmt.Errorf("failed to import %s: %w", filepath.Base(path), err), a.window)
					return
				}
				a.openFile(out, bsr.WithChannels(info.Channels), bsr.WithSampleRate(info.SampleRate))
			})
		}()
	}

	if _, err := os.Stat(out); err == nil {
		dialog.ShowConfirm("Overwrite", fmt.Sprintf("%s exists. Overwrite?", filepath.Base(out)), func(ok bool) {
			if ok {
				run()
			}
		}, a.window)
		return
	}
	run()
}
