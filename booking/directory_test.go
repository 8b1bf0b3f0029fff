package booking

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultDirectory(t *testing.T) {
	directory := DefaultDirectory()
	require.NoError(t, directory.Validate())
	require.Len(t, directory.Doctors, 3)
	require.Equal(t, "Cardiology Specialist with 20 years of experience.", directory.ContextMap()["Nikitha Vangale"])
	require.Equal(t, "Available Mon–Fri 10 AM–2 PM.", directory.AvailabilityMap()["Sourabh Singh"])
}

func TestLoadDirectoryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doctors.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
doctors:
  - name: Ada Park
    profile: Pediatrics, 8 years.
    availability: Tue and Thu mornings.
  - name: Ravi Menon
    profile: Orthopedics, 15 years.
    availability: Mon 1 PM–5 PM.
`), 0644))

	directory, err := LoadDirectoryFile(path)
	require.NoError(t, err)
	require.Len(t, directory.Doctors, 2)
	require.Equal(t, "Orthopedics, 15 years.", directory.ContextMap()["Ravi Menon"])

	prompt, err := directory.SelectionPrompt("my knee hurts")
	require.NoError(t, err)
	require.Contains(t, prompt, `"Ravi Menon": "Orthopedics, 15 years."`)
	require.Contains(t, prompt, "Select the best doctor based on the given user request: my knee hurts")
}

func TestLoadDirectoryFileInvalid(t *testing.T) {
	dir := t.TempDir()

	duplicate := filepath.Join(dir, "duplicate.yaml")
	require.NoError(t, os.WriteFile(duplicate, []byte(`
doctors:
  - name: Ada Park
  - name: Ada Park
`), 0644))
	_, err := LoadDirectoryFile(duplicate)
	require.ErrorContains(t, err, "duplicate doctor")

	unnamed := filepath.Join(dir, "unnamed.yaml")
	require.NoError(t, os.WriteFile(unnamed, []byte("doctors:\n  - profile: x\n"), 0644))
	_, err = LoadDirectoryFile(unnamed)
	require.ErrorContains(t, err, "has no name")

	_, err = LoadDirectoryFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestSchedulePrompt(t *testing.T) {
	prompt, err := DefaultDirectory().SchedulePrompt("Nikitha Vangale")
	require.NoError(t, err)
	require.Contains(t, prompt, "Appointment context (doctor availability): {")
	require.Contains(t, prompt, `"Nikitha Vangale": "Available Weekends 8 AM–11 AM."`)
	require.Contains(t, prompt, "Create an appointment schedule for the selected doctor: Nikitha Vangale")
}
