package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/itohio/gobsr/pkg/bsr"
	"github.com/itohio/gobsr/pkg/capture"
	"github.com/itohio/gobsr/pkg/config"
)

// recordSession is a running capture into a file.
type recordSession struct {
	path   string
	cancel context.CancelFunc
	done   chan struct{} // closed when the recorder goroutine exits
}

// stop cancels the capture and waits for the file to be closed.
func (s *recordSession) stop() {
	s.cancel()
	<-s.done
}

// toggleRecording starts a capture after asking for a file, or stops the
// running one.
func (a *appState) toggleRecording() {
	if a.session != nil {
		a.session.stop()
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
		if err := a.startRecording(path); err != nil {
			a.logger.Error("[explorer] recording failed", zap.String("path", path), zap.Error(err))
			dialog.ShowError(fmt.Errorf("failed to start recording: %w", err), a.window)
		}
	}, a.window)
	d.SetFileName(time.Now().Format("20060102-150405") + ".bsr")
	d.SetFilter(storage.NewExtensionFileFilter([]string{".bsr"}))
	d.Show()
}

// newDevice returns the capture device described by cfg.
func newDevice(cfg *config.Config, useMock bool, logger *zap.Logger) capture.Device {
	channels := len(cfg.Channels)
	if useMock {
		return capture.NewMock(&cfg.Capture.Mock, channels, cfg.SampleRate, capture.DefaultTick, capture.WithLogger(logger))
	}
	return capture.NewSerial(cfg.Capture.Port, cfg.Capture.BaudRate, channels, capture.WithLogger(logger))
}

func (a *appState) startRecording(path string) error {
	dev := newDevice(a.cfg, a.useMock, a.logger)
	if err := dev.Connect(); err != nil {
		return err
	}
	w, err := bsr.Create(path, dev.Channels())
	if err != nil {
		return errors.Join(err, dev.Close())
	}

	name := filepath.Base(path)
	p := message.NewPrinter(language.English)
	rec := capture.NewRecorder(dev, w, a.logger)
	rec.Progress = func(frames int64) {
		fyne.Do(func() {
			a.setStatus(p.Sprintf("Recording %s: %d frames", name, frames))
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &recordSession{path: path, cancel: cancel, done: make(chan struct{})}
	a.session = s
	a.recordBtn.SetIcon(theme.MediaStopIcon())
	a.setStatus("Recording " + name)

	rate := a.cfg.SampleRate
	go func() {
		defer close(s.done)
		n, err := rec.Record(ctx, 0)
		err = errors.Join(err, dev.Close(), w.Close())
		fyne.Do(func() {
			a.finishRecording(s, n, rate, err)
		})
	}()
	return nil
}

// finishRecording resets the record button and opens the captured file.
func (a *appState) finishRecording(s *recordSession, frames int64, rate int, err error) {
	if a.session == s {
		a.session = nil
	}
	if a.closing {
		return
	}
	a.recordBtn.SetIcon(theme.MediaRecordIcon())

	switch {
	case err != nil:
		a.logger.Error("[explorer] recording failed", zap.String("path", s.path), zap.Error(err))
		dialog.ShowError(fmt.Errorf("recording failed: %w", err), a.window)
	case frames == 0:
		a.setStatus("Recording stopped, no frames captured")
	default:
		a.openFile(s.path, bsr.WithSampleRate(rate))
	}
}
