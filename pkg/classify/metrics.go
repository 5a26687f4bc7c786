package classify

// Metrics are the binary classification metrics of one label.
type Metrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Confusion counts the outcomes of a classification run.
type Confusion struct {
	Correct int
	Total   int
	TP      map[string]int
	FP      map[string]int
	FN      map[string]int
}

// NewConfusion returns empty counters.
func NewConfusion() *Confusion {
	return &Confusion{
		TP: make(map[string]int),
		FP: make(map[string]int),
		FN: make(map[string]int),
	}
}

// Record counts one classified sentence.
func (c *Confusion) Record(actual, predicted string) {
	c.Total++
	if actual == predicted {
		c.Correct++
		c.TP[actual]++
		return
	}
	c.FN[actual]++
	c.FP[predicted]++
}

// Accuracy is the share of correctly classified sentences, 0 when none were.
func (c *Confusion) Accuracy() float64 {
	return ratio(c.Correct, c.Total)
}

// Metrics computes precision, recall and F1 for label. Every undefined ratio is 0.
func (c *Confusion) Metrics(label string) Metrics {
	tp := c.TP[label]
	m := Metrics{
		Precision: ratio(tp, tp+c.FP[label]),
		Recall:    ratio(tp, tp+c.FN[label]),
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
