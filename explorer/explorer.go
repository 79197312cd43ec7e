package main

import (
	"fmt"
	"path/filepath"
	"runtime/debug"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/itohio/gobsr/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// appState holds the application state. Everything in it is touched on the
// Fyne UI goroutine only.
type appState struct {
	cfg     *config.Config
	cfgPath string
	logger  *zap.Logger
	window  fyne.Window
	useMock bool

	tabs    *container.DocTabs
	welcome fyne.CanvasObject
	status  *widget.Label

	explodedBtn *widget.Button
	recordBtn   *widget.Button

	docs    map[*container.TabItem]*document
	session *recordSession // nil unless recording
	closing bool
}

func newAppState(cfg *config.Config, cfgPath string, window fyne.Window, logger *zap.Logger) *appState {
	a := &appState{
		cfg:     cfg,
		cfgPath: cfgPath,
		logger:  logger,
		window:  window,
		docs:    make(map[*container.TabItem]*document),
		status:  widget.NewLabel("No file loaded"),
	}

	a.tabs = container.NewDocTabs()
	a.tabs.OnClosed = a.forgetTab
	a.tabs.OnSelected = func(item *container.TabItem) {
		if doc := a.docs[item]; doc != nil {
			a.setStatus(doc.rec.Summary())
		}
	}

	openBtn := widget.NewButton("Open File", a.showOpenDialog)
	a.welcome = container.NewCenter(container.NewVBox(
		widget.NewLabel("Drag and drop a BSR file or use File > Open File"),
		container.NewCenter(openBtn),
	))

	a.setupMenu()
	return a
}

// content builds the window layout: toolbar on top, status at the bottom
// and the file tabs (or the welcome screen) in between.
func (a *appState) content() fyne.CanvasObject {
	a.updateWelcome()
	return container.NewBorder(
		a.createToolbar(),
		container.NewHBox(a.status),
		nil,
		nil,
		container.NewStack(a.welcome, a.tabs),
	)
}

// createToolbar creates the toolbar with file, view and capture buttons.
func (a *appState) createToolbar() fyne.CanvasObject {
	openBtn := widget.NewButtonWithIcon("", theme.FolderOpenIcon(), a.showOpenDialog)
	exportBtn := widget.NewButtonWithIcon("", theme.DocumentSaveIcon(), a.exportCurrent)
	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(a)
	})

	a.explodedBtn = widget.NewButtonWithIcon("", theme.ViewRestoreIcon(), a.toggleExploded)
	a.updateExplodedButton()

	a.recordBtn = widget.NewButtonWithIcon("", theme.MediaRecordIcon(), a.toggleRecording)

	return container.NewBorder(
		nil, // top
		nil, // bottom
		container.NewHBox(openBtn, exportBtn, settingsBtn, a.explodedBtn), // left
		container.NewHBox(a.recordBtn), // right
		nil,                            // center (spacer)
	)
}

func (a *appState) setupMenu() {
	openItem := fyne.NewMenuItem("Open File...", a.showOpenDialog)
	openItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierShortcutDefault}
	a.window.Canvas().AddShortcut(openItem.Shortcut, func(fyne.Shortcut) { a.showOpenDialog() })

	importItem := fyne.NewMenuItem("Import WAV...", a.showImportDialog)
	exportItem := fyne.NewMenuItem("Export View as WAV...", a.exportCurrent)
	recordItem := fyne.NewMenuItem("Start/Stop Recording", a.toggleRecording)

	closeItem := fyne.NewMenuItem("Close Tab", a.closeCurrent)
	closeItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyW, Modifier: fyne.KeyModifierShortcutDefault}
	a.window.Canvas().AddShortcut(closeItem.Shortcut, func(fyne.Shortcut) { a.closeCurrent() })

	file := fyne.NewMenu("File",
		openItem,
		importItem,
		exportItem,
		fyne.NewMenuItemSeparator(),
		recordItem,
		fyne.NewMenuItemSeparator(),
		closeItem,
		fyne.NewMenuItem("Close Other Tabs", a.closeOthers),
		fyne.NewMenuItem("Close All Tabs", a.closeAll),
	)
	view := fyne.NewMenu("View",
		fyne.NewMenuItem("Combined/Exploded", a.toggleExploded),
		fyne.NewMenuItem("Show Whole Recording", a.resetCurrent),
	)
	settings := fyne.NewMenu("Settings",
		fyne.NewMenuItem("Configure Channels & Sample Rate...", func() { showSettingsDialog(a) }),
	)
	help := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", a.showAbout),
	)
	a.window.SetMainMenu(fyne.NewMainMenu(file, view, settings, help))
}

func (a *appState) setStatus(text string) {
	a.status.SetText(text)
}

// updateWelcome shows the welcome screen while no tab is open.
func (a *appState) updateWelcome() {
	if len(a.tabs.Items) == 0 {
		a.welcome.Show()
		a.tabs.Hide()
		a.setStatus("No file loaded")
		return
	}
	a.welcome.Hide()
	a.tabs.Show()
}

// current returns the document of the selected tab or nil.
func (a *appState) current() *document {
	if item := a.tabs.Selected(); item != nil {
		return a.docs[item]
	}
	return nil
}

// addDocument shows doc in a new selected tab.
func (a *appState) addDocument(doc *document) {
	item := container.NewTabItem(filepath.Base(doc.rec.Path()), doc.content())
	a.docs[item] = doc
	a.tabs.Append(item)
	a.tabs.Select(item)
	a.updateWelcome()
	a.setStatus(doc.rec.Summary())
}

// forgetTab releases the document of a tab already removed from a.tabs.
func (a *appState) forgetTab(item *container.TabItem) {
	doc := a.docs[item]
	delete(a.docs, item)
	if doc != nil {
		if err := doc.close(); err != nil {
			a.logger.Warn("[explorer] close failed", zap.String("path", doc.rec.Path()), zap.Error(err))
		}
	}
	a.updateWelcome()
}

func (a *appState) closeTab(item *container.TabItem) {
	a.tabs.Remove(item)
	a.forgetTab(item)
}

func (a *appState) closeCurrent() {
	if item := a.tabs.Selected(); item != nil {
		a.closeTab(item)
	}
}

func (a *appState) closeOthers() {
	keep := a.tabs.Selected()
	for _, item := range append([]*container.TabItem(nil), a.tabs.Items...) {
		if item != keep {
			a.closeTab(item)
		}
	}
}

func (a *appState) closeAll() {
	for _, item := range append([]*container.TabItem(nil), a.tabs.Items...) {
		a.closeTab(item)
	}
}

// shutdown releases every recording and stops a running capture when the
// window closes.
func (a *appState) shutdown() {
	a.closing = true
	a.closeAll()
	if a.session != nil {
		a.session.stop()
	}
}

func (a *appState) resetCurrent() {
	if doc := a.current(); doc != nil {
		doc.showAll()
	}
}

func (a *appState) toggleExploded() {
	a.cfg.View.Exploded = !a.cfg.View.Exploded
	for _, doc := range a.docs {
		doc.scope.SetExploded(a.cfg.View.Exploded)
	}
	a.updateExplodedButton()
}

func (a *appState) updateExplodedButton() {
	if a.explodedBtn == nil {
		return
	}
	if a.cfg.View.Exploded {
		a.explodedBtn.SetIcon(theme.ViewRestoreIcon())
	} else {
		a.explodedBtn.SetIcon(theme.ViewFullScreenIcon())
	}
}

func (a *appState) showOpenDialog() {
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
		a.openFile(path)
	}, a.window)
	d.SetFilter(storage.NewExtensionFileFilter([]string{".bsr", ".BSR"}))
	d.Show()
}

// handleDrop opens every dropped recording in its own tab. WAV files are
// converted next to the original first.
func (a *appState) handleDrop(_ fyne.Position, uris []fyne.URI) {
	for _, uri := range uris {
		switch strings.ToLower(uri.Extension()) {
		case ".wav":
			a.importWAV(uri.Path())
		default:
			a.openFile(uri.Path())
		}
	}
}

func (a *appState) showAbout() {
	text := fmt.Sprintf("BSR Explorer %s", version)
	if rev := vcsRevision(); rev != "" {
		text += fmt.Sprintf(" (git: %s)", rev)
	}
	content := container.NewVBox(
		widget.NewLabelWithStyle(text, fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		widget.NewLabel("Viewer for multi-channel BSR recordings with extrema-preserving downsampling."),
		layout.NewSpacer(),
		widget.NewLabel("License: MIT"),
	)
	dialog.ShowCustom("About BSR Explorer", "Close", content, a.window)
}

// vcsRevision returns the short commit hash the binary was built from.
func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return ""
}
