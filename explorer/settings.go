package main

import (
	"fmt"
	"slices"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gobsr/pkg/capture"
	"github.com/itohio/gobsr/pkg/config"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createChannelsTab(state),
		createDisplayTab(state),
		createCaptureTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

// editConfig applies edit to a copy of the configuration, validates and
// saves it, then hands every open document to apply.
func (a *appState) editConfig(edit func(*config.Config), apply func(*document)) {
	next := *a.cfg
	next.Channels = slices.Clone(a.cfg.Channels)
	edit(&next)
	if err := next.Validate(); err != nil {
		dialog.ShowError(err, a.window)
		return
	}

	*a.cfg = next
	if err := a.cfg.Save(a.cfgPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), a.window)
	}
	if apply == nil {
		return
	}
	for _, doc := range a.docs {
		apply(doc)
	}
	if doc := a.current(); doc != nil {
		a.setStatus(doc.rec.Summary())
	}
}

// createChannelsTab creates the channel names tab.
func createChannelsTab(state *appState) *container.TabItem {
	entries := make([]*widget.Entry, len(state.cfg.Channels))
	items := make([]*widget.FormItem, len(entries))
	for i, ch := range state.cfg.Channels {
		entries[i] = widget.NewEntry()
		entries[i].SetText(ch.Name)
		items[i] = widget.NewFormItem(fmt.Sprintf("Channel %d", i+1), entries[i])
	}

	form := &widget.Form{
		Items: items,
		OnSubmit: func() {
			state.editConfig(func(cfg *config.Config) {
				for i, e := range entries {
					cfg.Channels[i].Name = e.Text
				}
			}, func(doc *document) {
				doc.setNames(state.cfg.ChannelNames())
			})
		},
	}

	return container.NewTabItem("Channels", form)
}

// createDisplayTab creates the sample rate and plot budget tab.
func createDisplayTab(state *appState) *container.TabItem {
	sampleRateEntry := widget.NewEntry()
	sampleRateEntry.SetText(strconv.Itoa(state.cfg.SampleRate))

	maxSamplesEntry := widget.NewEntry()
	maxSamplesEntry.SetText(strconv.Itoa(state.cfg.MaxDisplaySamples))

	toleranceEntry := widget.NewEntry()
	toleranceEntry.SetText(strconv.FormatFloat(state.cfg.View.PanTolerance, 'g', -1, 64))

	workersEntry := widget.NewEntry()
	workersEntry.SetText(strconv.Itoa(state.cfg.View.Workers))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Sample Rate (Hz)", Widget: sampleRateEntry},
			{Text: "Max Display Samples", Widget: maxSamplesEntry, HintText: "Points per channel in the visible window"},
			{Text: "Pan Tolerance", Widget: toleranceEntry, HintText: "Relative width change still treated as a pan"},
			{Text: "Workers", Widget: workersEntry},
		},
		OnSubmit: func() {
			state.editConfig(func(cfg *config.Config) {
				if sr, err := strconv.Atoi(sampleRateEntry.Text); err == nil {
					cfg.SampleRate = sr
				}
				if ms, err := strconv.Atoi(maxSamplesEntry.Text); err == nil {
					cfg.MaxDisplaySamples = ms
				}
				if tol, err := strconv.ParseFloat(toleranceEntry.Text, 64); err == nil {
					cfg.View.PanTolerance = tol
				}
				if w, err := strconv.Atoi(workersEntry.Text); err == nil {
					cfg.View.Workers = w
				}
			}, func(doc *document) {
				doc.applySettings(state.cfg)
			})
		},
	}

	return container.NewTabItem("Display", form)
}

// createCaptureTab creates the serial capture tab.
func createCaptureTab(state *appState) *container.TabItem {
	// Get available serial ports
	ports, err := capture.Ports()
	portOptions := []string{}
	portMap := make(map[string]string) // Map display name to actual port name

	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	}

	// Add current port if not in list
	currentPort := state.cfg.Capture.Port
	currentDisplay := currentPort
	found := false
	for _, opt := range portOptions {
		if portMap[opt] == currentPort {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
		portMap[currentPort] = currentPort
	}

	portSelect := widget.NewSelect(portOptions, nil)
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Capture.BaudRate))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			state.editConfig(func(cfg *config.Config) {
				if portSelect.Selected != "" {
					selectedPort := portMap[portSelect.Selected]
					if selectedPort == "" {
						selectedPort = portSelect.Selected // Fallback to selected text
					}
					cfg.Capture.Port = selectedPort
				}
				if baud, err := strconv.Atoi(baudEntry.Text); err == nil {
					cfg.Capture.BaudRate = baud
				}
			}, nil)
		},
	}

	return container.NewTabItem("Capture", form)
}

// createMockTab creates the Mock device configuration tab.
func createMockTab(state *appState) *container.TabItem {
	mock := state.cfg.Capture.Mock

	amplitudeEntry := widget.NewEntry()
	amplitudeEntry.SetText(strconv.FormatFloat(mock.Amplitude, 'f', 0, 64))

	noiseEntry := widget.NewEntry()
	noiseEntry.SetText(strconv.FormatFloat(mock.Noise, 'f', 0, 64))

	spikeEntry := widget.NewEntry()
	spikeEntry.SetText(strconv.Itoa(mock.SpikeEvery))

	frequencyEntry := widget.NewEntry()
	frequencyEntry.SetText(strconv.FormatFloat(mock.Frequency, 'f', -1, 64))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Amplitude", Widget: amplitudeEntry},
			{Text: "Noise", Widget: noiseEntry},
			{Text: "Spike Every (frames)", Widget: spikeEntry},
			{Text: "Frequency (Hz)", Widget: frequencyEntry},
		},
		OnSubmit: func() {
			state.editConfig(func(cfg *config.Config) {
				if a, err := strconv.ParseFloat(amplitudeEntry.Text, 64); err == nil {
					cfg.Capture.Mock.Amplitude = a
				}
				if n, err := strconv.ParseFloat(noiseEntry.Text, 64); err == nil {
					cfg.Capture.Mock.Noise = n
				}
				if s, err := strconv.Atoi(spikeEntry.Text); err == nil {
					cfg.Capture.Mock.SpikeEvery = s
				}
				if f, err := strconv.ParseFloat(frequencyEntry.Text, 64); err == nil {
					cfg.Capture.Mock.Frequency = f
				}
			}, nil)
		},
	}

	return container.NewTabItem("Mock", form)
}
