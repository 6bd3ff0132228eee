package calendar

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GuelfoNero-beep/D117/internal/logging"
)

var rome = time.FixedZone("CEST", 2*60*60)

func sampleEntry() Entry {
	return Entry{
		ID:          "evt01",
		Summary:     "Tornata Rituale",
		Description: "Prima riga\nSeconda riga",
		Start:       time.Date(2025, 6, 21, 20, 0, 0, 0, rome),
		End:         time.Date(2025, 6, 21, 22, 0, 0, 0, rome),
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	stamp := time.Date(2025, 6, 1, 8, 30, 15, 0, time.UTC)
	want := "BEGIN:VCALENDAR\n" +
		"VERSION:2.0\n" +
		"PRODID:-//OrienteD117//App//IT\n" +
		"BEGIN:VEVENT\n" +
		"UID:evt01@oriented117.it\n" +
		"DTSTAMP:20250601T083015Z\n" +
		"DTSTART:20250621T180000Z\n" +
		"DTEND:20250621T200000Z\n" +
		"SUMMARY:Tornata Rituale\n" +
		`DESCRIPTION:Prima riga\nSeconda riga` + "\n" +
		"END:VEVENT\n" +
		"END:VCALENDAR"

	assert.Equal(t, want, string(Render(sampleEntry(), stamp)))
	assert.Equal(t, Render(sampleEntry(), stamp), Render(sampleEntry(), stamp), "rendering is deterministic")

	custom := Format{ProductID: "-//Test//EN", UIDDomain: "example.org"}.Render(sampleEntry(), stamp)
	assert.Contains(t, string(custom), "PRODID:-//Test//EN\n")
	assert.Contains(t, string(custom), "UID:evt01@example.org\n")
}

func TestFileName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Tornata Rituale":                 "Tornata_Rituale.ics",
		"Conferenza Pubblica: Simbolismo": "Conferenza_Pubblica:_Simbolismo.ics",
		"tab\there  twice":                "tab_here__twice.ics",
		"":                                ".ics",
	}
	for input, want := range cases {
		assert.Equal(t, want, FileName(input), input)
	}
}

func TestFormatRange(t *testing.T) {
	t.Parallel()

	entry := sampleEntry()
	assert.Equal(t, "21 giugno 2025, 20:00 - 22:00", FormatRange(entry.Start, entry.End, rome))
	assert.Equal(t, "21 giugno 2025, 18:00 - 20:00", FormatRange(entry.Start, entry.End, nil))
	assert.Equal(t, "31 dicembre 2025, 22:00 - 1 gennaio 2026, 02:00",
		FormatRange(time.Date(2025, 12, 31, 22, 0, 0, 0, time.UTC), time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC), nil))
}

func TestExporter(t *testing.T) {
	t.Parallel()

	stamp := time.Date(2025, 6, 1, 8, 30, 15, 0, time.UTC)
	now := func() time.Time { return stamp }

	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		exporter := NewMemoryExporter(DefaultFormat(), now, logging.Discard())
		t.Cleanup(func() { _ = exporter.Close() })

		name, err := exporter.Export(context.Background(), sampleEntry())
		require.NoError(t, err)
		assert.Equal(t, "Tornata_Rituale.ics", name)

		payload, err := exporter.Read(context.Background(), name)
		require.NoError(t, err)
		assert.Equal(t, Render(sampleEntry(), stamp), payload)
	})

	t.Run("directory", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "ics")
		exporter, err := OpenDirExporter(dir, DefaultFormat(), now, logging.Discard())
		require.NoError(t, err)
		t.Cleanup(func() { _ = exporter.Close() })

		name, err := exporter.Export(context.Background(), sampleEntry())
		require.NoError(t, err)

		onDisk, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, Render(sampleEntry(), stamp), onDisk)
	})
}
