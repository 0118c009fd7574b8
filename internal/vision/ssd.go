package vision

import (
	"fmt"
	"math"
	"sort"

	"github.com/sweeney/mask-gate/internal/logic"
)

// DetectionRowWidth is the row size of a DetectionOutput blob:
// image_id, class, score, xmin, ymin, xmax, ymax.
const DetectionRowWidth = 7

// ParseSSD converts the flat output tensors of an SSD-style detection model
// (boxes as ymin,xmin,ymax,xmax quads, class indices, scores) into a
// RawResult sorted by descending score.
func ParseSSD(boxes, classes, scores []float32) (logic.RawResult, error) {
	n := len(scores)
	if len(classes) < n {
		return logic.RawResult{}, fmt.Errorf("ssd output: %d classes for %d scores", len(classes), n)
	}
	if len(boxes) < 4*n {
		return logic.RawResult{}, fmt.Errorf("ssd output: %d box values for %d scores", len(boxes), n)
	}

	out := newRawResult(n)
	for i, j := range byScore(scores) {
		out.Boxes[i] = logic.Box{
			YMin: float64(boxes[4*j]),
			XMin: float64(boxes[4*j+1]),
			YMax: float64(boxes[4*j+2]),
			XMax: float64(boxes[4*j+3]),
		}
		out.Classes[i] = int(classes[j])
		out.Scores[i] = float64(scores[j])
	}
	return out, nil
}

// ParseDetectionOutput converts a DetectionOutput blob (rows of
// image_id, class, score, xmin, ymin, xmax, ymax) into a RawResult sorted by
// descending score. classOffset is subtracted from each class id to index
// the label map; DetectionOutput reserves class 0 for background, so models
// imported with a background class use 1. Padding rows with a negative
// image_id are skipped.
func ParseDetectionOutput(data []float32, classOffset int) (logic.RawResult, error) {
	if len(data)%DetectionRowWidth != 0 {
		return logic.RawResult{}, fmt.Errorf("detection output: %d values is not a multiple of %d", len(data), DetectionRowWidth)
	}

	var rows [][]float32
	for i := 0; i < len(data); i += DetectionRowWidth {
		row := data[i : i+DetectionRowWidth]
		if row[0] < 0 {
			continue
		}
		rows = append(rows, row)
	}

	scores := make([]float32, len(rows))
	for i, row := range rows {
		scores[i] = row[2]
	}

	out := newRawResult(len(rows))
	for i, j := range byScore(scores) {
		row := rows[j]
		out.Boxes[i] = logic.Box{
			YMin: float64(row[4]),
			XMin: float64(row[3]),
			YMax: float64(row[6]),
			XMax: float64(row[5]),
		}
		out.Classes[i] = int(row[1]) - classOffset
		out.Scores[i] = float64(row[2])
	}
	return out, nil
}

func newRawResult(n int) logic.RawResult {
	return logic.RawResult{
		Boxes:   make([]logic.Box, n),
		Classes: make([]int, n),
		Scores:  make([]float64, n),
	}
}

// byScore returns indices into scores ordered by descending score, NaN last.
func byScore(scores []float32) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := float64(scores[order[a]]), float64(scores[order[b]])
		if math.IsNaN(sb) {
			return !math.IsNaN(sa)
		}
		return sa > sb
	})
	return order
}
