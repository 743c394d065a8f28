package mouth

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithSmileMAR sets the MAR band for smiling.
func WithSmileMAR(lo, hi float64) Option {
	return func(c *Classifier) {
		if lo >= 0 && hi > lo {
			c.smileMARMin, c.smileMARMax = lo, hi
		}
	}
}

// WithSmileWidthRatio sets the minimum width/height ratio of a smile.
func WithSmileWidthRatio(ratio float64) Option {
	return func(c *Classifier) {
		if ratio > 0 {
			c.smileWidthRatio = ratio
		}
	}
}

// WithSpeakingMAR sets the MAR band for speech.
func WithSpeakingMAR(lo, hi float64) Option {
	return func(c *Classifier) {
		if lo >= 0 && hi > lo {
			c.speakingMARMin, c.speakingMARMax = lo, hi
		}
	}
}

// WithYawnMAR sets the MAR above which a tall mouth is a yawn.
func WithYawnMAR(mar float64) Option {
	return func(c *Classifier) {
		if mar > 0 {
			c.yawnMARMin = mar
		}
	}
}

// WithEARDifferenceMax sets the largest eye asymmetry still read as a smile.
func WithEARDifferenceMax(diff float64) Option {
	return func(c *Classifier) {
		if diff > 0 {
			c.earDiffMax = diff
		}
	}
}

// WithConfidenceThreshold sets the confidence needed to open a smile event.
func WithConfidenceThreshold(conf float64) Option {
	return func(c *Classifier) {
		if conf > 0 && conf < 1 {
			c.confThreshold = conf
		}
	}
}

// WithWindow sets the number of frames in the majority vote.
func WithWindow(frames int) Option {
	return func(c *Classifier) {
		if frames > 0 {
			c.windowSize = frames
		}
	}
}
