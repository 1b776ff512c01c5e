package pdfservice

import (
	"fmt"
	"strings"
	"time"
)

// Paper sizes in centimeters.
var paperSizes = map[string][2]float64{
	"A3":      {29.7, 42.0},
	"A4":      {21.0, 29.7},
	"A5":      {14.8, 21.0},
	"LETTER":  {21.59, 27.94},
	"LEGAL":   {21.59, 35.56},
	"TABLOID": {27.94, 43.18},
}

type Paper struct {
	Size            string
	Landscape       bool
	MarginCM        float64
	Scale           float64
	PrintBackground bool
}

func DefaultPaper() Paper {
	return Paper{Size: "A4", MarginCM: 1.0, Scale: 1.0, PrintBackground: true}
}

func (p Paper) Validate() error {
	if _, ok := paperSizes[strings.ToUpper(p.Size)]; !ok {
		return fmt.Errorf("paper.size %q is not one of A3, A4, A5, Letter, Legal, Tabloid", p.Size)
	}
	if p.Scale < 0.1 || p.Scale > 2.0 {
		return fmt.Errorf("paper.scale must be between 0.1 and 2.0, got %g", p.Scale)
	}
	if p.MarginCM < 0 {
		return fmt.Errorf("paper.margin_cm cannot be negative")
	}
	return nil
}

// dimensions returns width and height in inches.
func (p Paper) dimensions() (float64, float64) {
	size := paperSizes[strings.ToUpper(p.Size)]
	w, h := size[0]/2.54, size[1]/2.54
	if p.Landscape {
		return h, w
	}
	return w, h
}

func (p Paper) marginInches() float64 {
	return p.MarginCM / 2.54
}

type Config struct {
	// OutputDir receives PDFs. Empty writes next to the source HTML.
	OutputDir string
	Timeout   time.Duration
	Paper     Paper

	ChromePath string
	// DownloadBrowser fetches a Chromium build when ChromePath is empty.
	DownloadBrowser bool
	NoSandbox       bool
}

func DefaultConfig() Config {
	return Config{
		Timeout: 60 * time.Second,
		Paper:   DefaultPaper(),
	}
}

func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return c.Paper.Validate()
}
