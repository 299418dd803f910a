// Package diagnostics answers network-health questions from a fixed table of
// mock reports. Nothing here talks to a real network operations center.
package diagnostics

import (
	_ "embed"
	"fmt"
	"strings"
	"unicode"

	contractx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/contract"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogRaw []byte

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

type Report struct {
	Status Status `json:"status" yaml:"status"`
	Report string `json:"report" yaml:"report"`
}

// NotFoundError echoes the caller's input exactly as it was given.
type NotFoundError struct {
	AreaCode string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no diagnostic data for area %q", e.AreaCode)
}

func (e *NotFoundError) Unwrap() error {
	return contractx.ErrNotFound
}

func (e *NotFoundError) UserMessage() string {
	return fmt.Sprintf("Sorry, no diagnostic data found for area '%s'.", e.AreaCode)
}

// ReportError carries a report whose diagnostic run itself failed.
type ReportError struct {
	AreaCode string
	Report   string
}

func (e *ReportError) Error() string {
	return fmt.Sprintf("diagnostics failed for area %q: %s", e.AreaCode, e.Report)
}

func (e *ReportError) UserMessage() string {
	return e.Report
}

// Catalog is immutable after construction and safe for concurrent use.
type Catalog struct {
	reports map[string]Report
}

type catalogDocument struct {
	Reports []struct {
		AreaCode string `yaml:"area_code"`
		Status   Status `yaml:"status"`
		Report   string `yaml:"report"`
	} `yaml:"reports"`
}

var defaultCatalog = mustParse(defaultCatalogRaw)

// Default returns the catalog bundled with the binary.
func Default() *Catalog {
	return defaultCatalog
}

func mustParse(raw []byte) *Catalog {
	c, err := Parse(raw)
	if err != nil {
		panic(fmt.Sprintf("diagnostics: bundled catalog: %v", err))
	}
	return c
}

// Parse builds a catalog from a YAML document.
func Parse(raw []byte) (*Catalog, error) {
	var doc catalogDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode catalog: %v", contractx.ErrValidation, err)
	}

	reports := make(map[string]Report, len(doc.Reports))
	for i, entry := range doc.Reports {
		key := Normalize(entry.AreaCode)
		if key == "" {
			return nil, fmt.Errorf("%w: entry %d has empty area_code", contractx.ErrValidation, i)
		}
		if _, dup := reports[key]; dup {
			return nil, fmt.Errorf("%w: duplicate area_code %q", contractx.ErrValidation, entry.AreaCode)
		}
		status := entry.Status
		if status == "" {
			status = StatusSuccess
		}
		if status != StatusSuccess && status != StatusError {
			return nil, fmt.Errorf("%w: area_code %q has invalid status %q", contractx.ErrValidation, entry.AreaCode, entry.Status)
		}
		if strings.TrimSpace(entry.Report) == "" {
			return nil, fmt.Errorf("%w: area_code %q has empty report", contractx.ErrValidation, entry.AreaCode)
		}
		reports[key] = Report{Status: status, Report: strings.TrimSpace(entry.Report)}
	}
	return &Catalog{reports: reports}, nil
}

// Diagnose looks up the report for an area code after normalization. Entries
// configured with status error come back as a *ReportError.
func (c *Catalog) Diagnose(areaCode string) (Report, error) {
	if c != nil {
		if r, ok := c.reports[Normalize(areaCode)]; ok {
			if r.Status == StatusError {
				return r, &ReportError{AreaCode: areaCode, Report: r.Report}
			}
			return r, nil
		}
	}
	return Report{}, &NotFoundError{AreaCode: areaCode}
}

// AreaCodes lists the configured keys in normalized form.
func (c *Catalog) AreaCodes() []string {
	codes := make([]string, 0, len(c.reports))
	for k := range c.reports {
		codes = append(codes, k)
	}
	return codes
}

// Normalize lower-cases the code and drops every whitespace rune.
func Normalize(areaCode string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, areaCode)
}
