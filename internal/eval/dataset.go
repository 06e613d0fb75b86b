package eval

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Case is one labelled question. ExpectedPage is zero when the case only
// checks the answer, and ExpectedAnswer is empty when it only checks
// retrieval.
type Case struct {
	Query          string `yaml:"query" json:"query"`
	ExpectedPage   int    `yaml:"expected_page" json:"expected_page"`
	ExpectedAnswer string `yaml:"expected_answer" json:"expected_answer"`
}

type dataset struct {
	Cases []Case `yaml:"cases"`
}

// LoadCases reads a YAML dataset of the form:
//
//	cases:
//	  - query: When was the company founded?
//	    expected_page: 1
//	    expected_answer: In 1999.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return ParseCases(data)
}

// ParseCases decodes and validates dataset YAML.
func ParseCases(data []byte) ([]Case, error) {
	var ds dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	if len(ds.Cases) == 0 {
		return nil, fmt.Errorf("dataset has no cases")
	}
	for i, c := range ds.Cases {
		if strings.TrimSpace(c.Query) == "" {
			return nil, fmt.Errorf("case %d: query is empty", i+1)
		}
		if c.ExpectedPage < 0 {
			return nil, fmt.Errorf("case %d: expected_page must be positive", i+1)
		}
	}
	return ds.Cases, nil
}
