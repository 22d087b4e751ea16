package coverage

import (
	"fmt"
	"os"

	"github.com/tidwall/sjson"
)

// Summary renders per-file and total line counts as JSON:
//
//	{"files":[{"path":"/src/a.lua","lines_found":3,"lines_hit":2}],
//	 "lines_found":3,"lines_hit":2}
func (c *Coverage) Summary() ([]byte, error) {
	doc := []byte(`{"files":[]}`)
	totalFound, totalHit := 0, 0

	var err error
	for _, file := range c.files {
		stats := c.tables[file].stats
		found, hit := stats.Found(), stats.Hit()
		totalFound += found
		totalHit += hit

		entry := []byte(`{}`)
		if entry, err = sjson.SetBytes(entry, "path", file); err != nil {
			return nil, fmt.Errorf("summary path: %w", err)
		}
		if entry, err = sjson.SetBytes(entry, "lines_found", found); err != nil {
			return nil, fmt.Errorf("summary lines_found: %w", err)
		}
		if entry, err = sjson.SetBytes(entry, "lines_hit", hit); err != nil {
			return nil, fmt.Errorf("summary lines_hit: %w", err)
		}
		if doc, err = sjson.SetRawBytes(doc, "files.-1", entry); err != nil {
			return nil, fmt.Errorf("summary files: %w", err)
		}
	}

	if doc, err = sjson.SetBytes(doc, "lines_found", totalFound); err != nil {
		return nil, fmt.Errorf("summary lines_found: %w", err)
	}
	if doc, err = sjson.SetBytes(doc, "lines_hit", totalHit); err != nil {
		return nil, fmt.Errorf("summary lines_hit: %w", err)
	}
	return doc, nil
}

// WriteSummary writes Summary to path.
func (c *Coverage) WriteSummary(path string) error {
	doc, err := c.Summary()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}
