package main

import (
	"flag"
	"fmt"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"go.uber.org/zap"

	"github.com/itohio/gobsr/pkg/config"
	"github.com/itohio/gobsr/pkg/logging"
)

func main() {
	defaultConfig, err := config.DefaultPath()
	if err != nil {
		defaultConfig = "settings.yaml"
	}

	var (
		configFlag   = flag.String("config", defaultConfig, "Settings file path")
		rateFlag     = flag.Int("rate", 0, "Sample rate override in Hz")
		maxFlag      = flag.Int("max", 0, "Max display samples per channel override")
		explodedFlag = flag.Bool("exploded", false, "Show one plot per channel")
		mockFlag     = flag.Bool("mock", false, "Record from a mocked device instead of the serial port")
		debugFlag    = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [file.bsr ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	logger, done, err := logging.Setup(*debugFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer done()

	// Load configuration; a missing or broken file falls back to defaults
	cfg := config.LoadOrDefault(*configFlag, logger)

	// Command line overrides
	if *rateFlag > 0 {
		cfg.SampleRate = *rateFlag
	}
	if *maxFlag > 0 {
		cfg.MaxDisplaySamples = *maxFlag
	}
	if *explodedFlag {
		cfg.View.Exploded = true
	}

	// Create Fyne application
	application := app.NewWithID("com.itohio.bsrexplorer")

	// Create main window
	window := application.NewWindow("BSR Explorer")
	window.Resize(fyne.NewSize(1400, 900))
	window.CenterOnScreen()

	state := newAppState(cfg, *configFlag, window, logger)
	state.useMock = *mockFlag

	window.SetContent(state.content())
	window.SetOnDropped(state.handleDrop)
	window.SetOnClosed(state.shutdown)

	files := flag.Args()
	application.Lifecycle().SetOnStarted(func() {
		for _, path := range files {
			state.openFile(path)
		}
	})

	logger.Info("[explorer] starting",
		zap.String("config", *configFlag),
		zap.Int("sample_rate", cfg.SampleRate),
		zap.Int("max_display_samples", cfg.MaxDisplaySamples),
	)
	window.ShowAndRun()
}
