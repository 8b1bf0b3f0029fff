package booking

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Doctor is one entry of the static lookup data embedded in prompts.
type Doctor struct {
	Name         string `yaml:"name" json:"name"`
	Profile      string `yaml:"profile" json:"profile"`
	Availability string `yaml:"availability" json:"availability"`
}

// Directory is the set of doctors the selection step chooses from.
type Directory struct {
	Doctors []Doctor `yaml:"doctors" json:"doctors"`
}

// DefaultDirectory returns the built-in doctor directory.
func DefaultDirectory() *Directory {
	return &Directory{
		Doctors: []Doctor{
			{
				Name:         "Sourabh Singh",
				Profile:      "Oncology Expert with 12 years of experience.",
				Availability: "Available Mon–Fri 10 AM–2 PM.",
			},
			{
				Name:         "Goutam Tak",
				Profile:      "Dermatology Expert with 10 years of experience.",
				Availability: "Available Wed–Sat 4 PM–6 PM.",
			},
			{
				Name:         "Nikitha Vangale",
				Profile:      "Cardiology Specialist with 20 years of experience.",
				Availability: "Available Weekends 8 AM–11 AM.",
			},
		},
	}
}

// LoadDirectoryFile reads a YAML directory file:
//
//	doctors:
//	  - name: Goutam Tak
//	    profile: Dermatology Expert with 10 years of experience.
//	    availability: Available Wed–Sat 4 PM–6 PM.
func LoadDirectoryFile(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory file: %w", err)
	}
	var directory Directory
	if err := yaml.Unmarshal(data, &directory); err != nil {
		return nil, fmt.Errorf("failed to parse directory file %s: %w", path, err)
	}
	if err := directory.Validate(); err != nil {
		return nil, fmt.Errorf("invalid directory file %s: %w", path, err)
	}
	return &directory, nil
}

// Validate checks that the directory has doctors with unique, non-empty names
func (d *Directory) Validate() error {
	if len(d.Doctors) == 0 {
		return fmt.Errorf("no doctors defined")
	}
	seen := make(map[string]bool, len(d.Doctors))
	for i, doctor := range d.Doctors {
		if doctor.Name == "" {
			return fmt.Errorf("doctor %d has no name", i)
		}
		if seen[doctor.Name] {
			return fmt.Errorf("duplicate doctor %q", doctor.Name)
		}
		seen[doctor.Name] = true
	}
	return nil
}

// ContextMap maps doctor names to their profiles.
func (d *Directory) ContextMap() map[string]string {
	m := make(map[string]string, len(d.Doctors))
	for _, doctor := range d.Doctors {
		m[doctor.Name] = doctor.Profile
	}
	return m
}

// AvailabilityMap maps doctor names to their availability.
func (d *Directory) AvailabilityMap() map[string]string {
	m := make(map[string]string, len(d.Doctors))
	for _, doctor := range d.Doctors {
		m[doctor.Name] = doctor.Availability
	}
	return m
}
