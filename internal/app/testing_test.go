package app

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sha1n/plenumbot/internal/config"
	"github.com/sha1n/plenumbot/internal/wiki"
	"github.com/spf13/pflag"
)

const (
	testPlenumTemplate = "====== Plenum {{ date_plenum }} ======\n\n===== Termine =====\n{{ upcoming_events }}\n{{ content }}\n"
	testBlankTemplate  = "===== Themen =====\n  * \n"

	testPrevious = `====== Plenum 2024-06-10 ======

===== Termine =====
  * 2024-06-03 Aufräumtag
  * 2024-06-20 Sommerfest

===== Lötstation =====
Spitze tauschen

===== Kasse =====
Getränke
`
)

// Wednesday; the Monday meeting window is 2024-06-10 .. 2024-06-17
var testNow = time.Date(2024, 6, 12, 6, 0, 0, 0, time.UTC)

// noopValidate is a no-op validation function for tests
func noopValidate(*config.Settings) error {
	return nil
}

// testSettings returns complete settings with templates on disk.
func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	dir := t.TempDir()
	plenumPath := filepath.Join(dir, "plenum.tmpl")
	blankPath := filepath.Join(dir, "blank_topics.tmpl")
	if err := os.WriteFile(plenumPath, []byte(testPlenumTemplate), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(blankPath, []byte(testBlankTemplate), 0o644); err != nil {
		t.Fatal(err)
	}

	return &config.Settings{
		Meeting: config.MeetingSettings{
			Weekday:      0,
			Namespace:    "plenum",
			IndexPage:    "plenum:start",
			RedirectPage: "plenum:aktuell",
			Timezone:     "UTC",
			Summary:      "modified by plenumbot",
		},
		Templates: config.TemplateSettings{Plenum: plenumPath, Blank: blankPath},
		Store: config.StoreSettings{
			Type:       config.StoreTypeFilesystem,
			Filesystem: config.FilesystemSettings{Dir: filepath.Join(dir, "pages")},
		},
		StateDir:  filepath.Join(dir, "state"),
		Archive:   config.ArchiveSettings{MaxResults: 10},
		Daemon:    config.DaemonSettings{Schedule: "0 6 * * *"},
		LogLevel:  "info",
		Transport: "stdio",
		Host:      "localhost",
		Port:      8080,
		Auth:      config.AuthSettings{Type: config.AuthTypeNone},
	}
}

func newTestStore() *wiki.MemoryStore {
	return wiki.NewMemoryStore(map[string]string{
		"plenum:2024-06-10": testPrevious,
		"plenum:start":      "====== Protokolle ======\n",
	})
}

// testParams wires settings and store into params writing output to the returned buffer.
func testParams(settings *config.Settings, store wiki.Store) (RunParams, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return RunParams{
		LoadSettings: func(*pflag.FlagSet) (*config.Settings, error) {
			return settings, nil
		},
		ValidSettings: config.ValidateSettings,
		OpenStore: func(*config.Settings) (wiki.Store, error) {
			return store, nil
		},
		Now:            func() time.Time { return testNow },
		CreateServer:   CreateMCPServer,
		StartSSEServer: StartSSEServer,
		Out:            out,
		LogOutput:      io.Discard,
	}, out
}
