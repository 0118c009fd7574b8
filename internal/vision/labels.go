package vision

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadLabels reads a label map with one label per line. The line number is
// the class index, so blank lines are kept as empty labels.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open label map: %w", err)
	}
	defer f.Close()

	labels, err := ReadLabels(f)
	if err != nil {
		return nil, fmt.Errorf("read label map %s: %w", path, err)
	}
	return labels, nil
}

// ReadLabels parses a label map from r.
func ReadLabels(r io.Reader) ([]string, error) {
	var labels []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		labels = append(labels, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	// Drop trailing blank lines.
	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("label map is empty")
	}
	return labels, nil
}
