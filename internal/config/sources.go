package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source describes one feed collector.
type Source struct {
	Tag      string   `yaml:"tag"`
	Name     string   `yaml:"name"`
	URL      string   `yaml:"url"`
	Keywords []string `yaml:"keywords,omitempty"`
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// ClinicalKeywords is the allow-list applied to the wire-service feed, which
// carries a lot of non-clinical corporate news.
var ClinicalKeywords = []string{
	"phase 1", "phase i",
	"phase 2", "phase ii",
	"phase 3", "phase iii",
	"clinical trial", "clinical study",
	"topline", "top-line",
	"pivotal", "registrational",
	"interim results", "final results",
	"fda", "nda", "bla", "ema",
	"approval", "approves", "authorized", "authorization",
}

// DefaultSources returns the built-in regulatory, trade-press and wire feeds.
func DefaultSources() []Source {
	return []Source{
		{
			Tag:  "fda",
			Name: "FDA press releases",
			URL:  "https://www.fda.gov/about-fda/contact-fda/stay-informed/rss-feeds/press-releases/rss.xml",
		},
		{
			Tag:  "fierce",
			Name: "FierceBiotech",
			URL:  "https://www.fiercebiotech.com/rss/xml",
		},
		{
			Tag:      "globe",
			Name:     "GlobeNewswire pharmaceuticals",
			URL:      "https://www.globenewswire.com/RssFeed/industry/4577-Pharmaceuticals/feedTitle/GlobeNewswire%20-%20Industry%20News%20on%20Pharmaceuticals",
			Keywords: append([]string(nil), ClinicalKeywords...),
		},
	}
}

// LoadSources reads a YAML sources file. Every entry needs a tag and a URL,
// and tags must be unique.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	if len(file.Sources) == 0 {
		return nil, fmt.Errorf("sources file %s defines no sources", path)
	}

	seen := make(map[string]bool, len(file.Sources))
	for i, s := range file.Sources {
		s.Tag = strings.TrimSpace(s.Tag)
		s.URL = strings.TrimSpace(s.URL)
		if s.Tag == "" || s.URL == "" {
			return nil, fmt.Errorf("source %d: tag and url are required", i)
		}
		if seen[s.Tag] {
			return nil, fmt.Errorf("source %d: duplicate tag %q", i, s.Tag)
		}
		seen[s.Tag] = true
		if s.Name == "" {
			s.Name = s.Tag
		}
		file.Sources[i] = s
	}

	return file.Sources, nil
}
