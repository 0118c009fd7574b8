package logic

// DefaultThreshold is the minimum score a candidate must exceed.
const DefaultThreshold = 0.7

// Default labels from the mask model's label map.
const (
	DefaultPositiveLabel = "mask"
	DefaultNegativeLabel = "no mask"
)

// ClassifierConfig configures a Classifier.
type ClassifierConfig struct {
	// Threshold is exclusive: a score must be strictly greater to count.
	Threshold float64
	// Labels maps class index to label string.
	Labels        []string
	PositiveLabel string
	NegativeLabel string
}

// Classifier reduces raw detector output to a single tri-state Classification.
// It holds only configuration and is safe to share.
type Classifier struct {
	threshold float64
	labels    []string
	kinds     map[string]Kind
}

// NewClassifier creates a classifier. Empty label names fall back to the defaults.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	pos := cfg.PositiveLabel
	if pos == "" {
		pos = DefaultPositiveLabel
	}
	neg := cfg.NegativeLabel
	if neg == "" {
		neg = DefaultNegativeLabel
	}
	return &Classifier{
		threshold: cfg.Threshold,
		labels:    cfg.Labels,
		kinds: map[string]Kind{
			pos: KindPositive,
			neg: KindNegative,
		},
	}
}

// Classify looks at the top candidate only. It returns None when there is no
// candidate, the score is not in (threshold, 1], the class index has no label,
// or the label carries no actuation meaning.
func (c *Classifier) Classify(raw RawResult) Classification {
	if len(raw.Scores) == 0 || len(raw.Classes) == 0 {
		return None
	}

	score := raw.Scores[0]
	// NaN fails both comparisons.
	if !(score > c.threshold && score <= 1.0) {
		return None
	}

	idx := raw.Classes[0]
	if idx < 0 || idx >= len(c.labels) {
		return None
	}
	label := c.labels[idx]

	kind, ok := c.kinds[label]
	if !ok {
		return None
	}

	out := Classification{
		Kind:       kind,
		Confidence: score,
		Label:      label,
	}
	if len(raw.Boxes) > 0 {
		b := raw.Boxes[0]
		out.Box = &b
	}
	return out
}
