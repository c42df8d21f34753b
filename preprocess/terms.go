package preprocess

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed data/insurance_terms.yaml
var defaultTermsYAML []byte

// TermDictionary holds the static preprocessing configuration loaded at
// startup.
type TermDictionary struct {
	Spacing            map[string]string   `yaml:"spacing"`
	Synonyms           map[string][]string `yaml:"synonyms"`
	IncompletePatterns []IncompletePattern `yaml:"incomplete_patterns"`

	// synonymKeys is the deterministic iteration order for expansion.
	synonymKeys []string
	compiled    []compiledPattern
}

// IncompletePattern pairs a regex with the advice returned when it matches.
type IncompletePattern struct {
	Pattern    string `yaml:"pattern"`
	Suggestion string `yaml:"suggestion"`
}

type compiledPattern struct {
	re         *regexp.Regexp
	suggestion string
}

// LoadTermDictionary reads a dictionary file; an empty path loads the
// embedded defaults.
func LoadTermDictionary(path string) (*TermDictionary, error) {
	data := defaultTermsYAML
	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read term dictionary: %w", err)
		}
		data = fileData
	}

	var dict TermDictionary
	if err := yaml.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("parse term dictionary: %w", err)
	}
	if err := dict.compile(); err != nil {
		return nil, err
	}
	return &dict, nil
}

func (d *TermDictionary) compile() error {
	d.synonymKeys = make([]string, 0, len(d.Synonyms))
	for k := range d.Synonyms {
		d.synonymKeys = append(d.synonymKeys, k)
	}
	sort.Strings(d.synonymKeys)

	d.compiled = make([]compiledPattern, 0, len(d.IncompletePatterns))
	for _, p := range d.IncompletePatterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return fmt.Errorf("compile incomplete pattern %q: %w", p.Pattern, err)
		}
		d.compiled = append(d.compiled, compiledPattern{re: re, suggestion: p.Suggestion})
	}
	return nil
}
