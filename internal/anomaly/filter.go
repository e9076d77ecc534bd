// Package anomaly implements the pre-write gate that keeps noisy,
// repetitive or low-confidence candidates out of the learned stores.
package anomaly

import (
	"strings"
	"sync"
	"time"

	"github.com/fyrsmithlabs/autoreply/internal/similarity"
	"go.uber.org/zap"
)

// Rejection reasons.
const (
	// ReasonTechnicalNoise marks text matching configured noise markers.
	ReasonTechnicalNoise = "technical_noise"

	// ReasonLooping marks near-duplicate submissions repeated within one
	// 60-second bucket.
	ReasonLooping = "looping"

	// ReasonTooLong marks text exceeding the configured length limit.
	ReasonTooLong = "too_long"

	// ReasonUncertainLanguage marks text with repeated hedging phrases.
	ReasonUncertainLanguage = "uncertain_language"
)

const (
	// DefaultMaxLength is the default submission length limit in characters.
	DefaultMaxLength = 2000

	// windowSize bounds the sliding window of accepted submissions.
	windowSize = 10

	// loopBucket is the time bucket width for the looping check.
	loopBucket = 60 * time.Second

	// loopSimilarity is the lexical similarity above which two submissions
	// count as near-duplicates.
	loopSimilarity = 0.7

	// loopCount is how many near-duplicates in one bucket trigger rejection,
	// including the submission under test.
	loopCount = 3

	// hedgeCount is how many hedging-phrase occurrences trigger rejection.
	hedgeCount = 3
)

// DefaultNoiseMarkers flag code-like syntax that indicates the submission
// is a paste rather than a question worth learning from.
var DefaultNoiseMarkers = []string{
	"```",
	"#!/",
	"traceback (most recent call last)",
	"</",
	"{};",
	"0x",
}

// DefaultHedgePhrases are low-confidence markers; text leaning on them is
// too uncertain to cache.
var DefaultHedgePhrases = []string{
	"maybe",
	"possibly",
	"perhaps",
	"not sure",
	"i think",
	"i guess",
}

// Config holds anomaly filter configuration.
type Config struct {
	// MaxLength is the submission length limit in characters.
	MaxLength int `koanf:"max_length"`

	// NoiseMarkers are substrings that mark text as technical noise.
	NoiseMarkers []string `koanf:"noise_markers"`

	// HedgePhrases are substrings counted for the uncertainty check.
	HedgePhrases []string `koanf:"hedge_phrases"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.MaxLength == 0 {
		c.MaxLength = DefaultMaxLength
	}
	if c.NoiseMarkers == nil {
		c.NoiseMarkers = DefaultNoiseMarkers
	}
	if c.HedgePhrases == nil {
		c.HedgePhrases = DefaultHedgePhrases
	}
}

// submission is one accepted text in the sliding window.
type submission struct {
	text   string
	bucket int64
}

// Filter is the anomaly gate. Accepted texts are recorded into a bounded
// sliding window used by the looping check; rejected texts are not.
type Filter struct {
	config Config
	logger *zap.Logger

	mu     sync.Mutex
	window []submission
}

// NewFilter creates an anomaly filter.
func NewFilter(config Config, logger *zap.Logger) *Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()

	return &Filter{
		config: config,
		logger: logger,
		window: make([]submission, 0, windowSize),
	}
}

// Check inspects a candidate submission. It returns true and a reason when
// the text is anomalous; any single condition rejects. Accepted text is
// recorded for the looping check.
func (f *Filter) Check(text string, ts time.Time) (bool, string) {
	if reason := f.inspect(text, ts); reason != "" {
		rejections.WithLabelValues(reason).Inc()
		f.logger.Debug("anomaly rejected",
			zap.String("reason", reason),
			zap.Int("length", len(text)))
		return true, reason
	}

	f.record(text, ts)
	return false, ""
}

func (f *Filter) inspect(text string, ts time.Time) string {
	lower := strings.ToLower(text)

	for _, marker := range f.config.NoiseMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return ReasonTechnicalNoise
		}
	}

	if len([]rune(text)) > f.config.MaxLength {
		return ReasonTooLong
	}

	hedges := 0
	for _, phrase := range f.config.HedgePhrases {
		hedges += strings.Count(lower, strings.ToLower(phrase))
	}
	if hedges >= hedgeCount {
		return ReasonUncertainLanguage
	}

	if f.isLooping(text, ts) {
		return ReasonLooping
	}

	return ""
}

// isLooping counts near-duplicates of text within the same time bucket,
// including the submission under test.
func (f *Filter) isLooping(text string, ts time.Time) bool {
	bucket := ts.Unix() / int64(loopBucket/time.Second)

	f.mu.Lock()
	defer f.mu.Unlock()

	duplicates := 1
	for _, s := range f.window {
		if s.bucket != bucket {
			continue
		}
		if similarity.Jaccard(s.text, text) > loopSimilarity {
			duplicates++
		}
	}
	return duplicates >= loopCount
}

func (f *Filter) record(text string, ts time.Time) {
	bucket := ts.Unix() / int64(loopBucket/time.Second)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.window = append(f.window, submission{text: text, bucket: bucket})
	if len(f.window) > windowSize {
		f.window = f.window[len(f.window)-windowSize:]
	}
}
