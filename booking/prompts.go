package booking

import (
	"fmt"
	"sort"
	"strings"
	"text/template"
)

var (
	selectionPrompt = template.Must(template.New("selection").Parse(`
Context: {{ .Context }}
Select the best doctor based on the given user request: {{ .Request }}
Return only the doctor name and reason for selection.
`))

	schedulePrompt = template.Must(template.New("schedule").Parse(`
Appointment context (doctor availability): {{ .Availability }}
Create an appointment schedule for the selected doctor: {{ .DoctorDetails }}
`))
)

// formatMapping renders a name → text mapping in a stable order, e.g.
// {"Goutam Tak": "Dermatology Expert...", "Nikitha Vangale": "..."}.
func formatMapping(m map[string]string) string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%q: %q", name, m[name]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func render(t *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", t.Name(), err)
	}
	return strings.TrimSpace(sb.String()), nil
}

// SelectionPrompt renders the doctor selection prompt.
func (d *Directory) SelectionPrompt(request string) (string, error) {
	return render(selectionPrompt, map[string]string{
		"Context": formatMapping(d.ContextMap()),
		"Request": request,
	})
}

// SchedulePrompt renders the appointment scheduling prompt.
func (d *Directory) SchedulePrompt(doctorDetails string) (string, error) {
	return render(schedulePrompt, map[string]string{
		"Availability":  formatMapping(d.AvailabilityMap()),
		"DoctorDetails": doctorDetails,
	})
}
