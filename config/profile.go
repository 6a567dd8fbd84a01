package config

import (
	"os"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
)

// AssistantProfile describes how a tenant's assistant should present
// itself. Profiles are authored as YAML files per organization and feed
// the system prompt builder alongside retrieved memory.
type AssistantProfile struct {
	OrganizationID string `yaml:"organizationId"`
	AssistantName  string `yaml:"assistantName"`
	Tone           string `yaml:"tone"`
	Language       string `yaml:"language"`
	Greeting       string `yaml:"greeting"`
	BusinessFacts  []string `yaml:"businessFacts"`
	FAQ            []FAQEntry `yaml:"faq"`
}

type FAQEntry struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

func LoadProfileFromFile(file string) (profile AssistantProfile, err error) {
	var yamlBytes []byte
	if yamlBytes, err = os.ReadFile(file); err != nil {
		err = errors.Wrapf(err, "failed to read file %s", file)
		return
	}

	if err = yaml.Unmarshal(yamlBytes, &profile); err != nil {
		err = errors.Wrapf(err, "failed to unmarshal file %s", file)
		return
	}

	return
}

func LoadProfilesFromFiles(files []string) ([]AssistantProfile, error) {
	profiles := make([]AssistantProfile, 0, len(files))
	for _, file := range files {
		profile, err := LoadProfileFromFile(file)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}
