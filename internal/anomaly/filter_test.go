package anomaly

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fixedTime sits safely inside a single 60-second bucket.
var fixedTime = time.Date(2026, 3, 14, 12, 0, 5, 0, time.UTC)

func newTestFilter() *Filter {
	return NewFilter(Config{}, zap.NewNop())
}

func TestCheckAcceptsPlainQuestion(t *testing.T) {
	f := newTestFilter()

	rejected, reason := f.Check("how do I rename a git branch", fixedTime)
	assert.False(t, rejected)
	assert.Empty(t, reason)
}

func TestCheckTechnicalNoise(t *testing.T) {
	f := newTestFilter()

	rejected, reason := f.Check("look at this ```func main() {}```", fixedTime)
	assert.True(t, rejected)
	assert.Equal(t, ReasonTechnicalNoise, reason)
}

func TestCheckTooLong(t *testing.T) {
	f := newTestFilter()

	rejected, reason := f.Check(strings.Repeat("a", 2001), fixedTime)
	assert.True(t, rejected)
	assert.Equal(t, ReasonTooLong, reason)
}

func TestCheckTooLongRespectsConfiguredLimit(t *testing.T) {
	f := NewFilter(Config{MaxLength: 10}, zap.NewNop())

	rejected, reason := f.Check("this is longer than ten characters", fixedTime)
	assert.True(t, rejected)
	assert.Equal(t, ReasonTooLong, reason)
}

func TestCheckUncertainLanguage(t *testing.T) {
	f := newTestFilter()

	rejected, reason := f.Check("maybe this works, or possibly that, perhaps neither", fixedTime)
	assert.True(t, rejected)
	assert.Equal(t, ReasonUncertainLanguage, reason)
}

func TestCheckTwoHedgesAccepted(t *testing.T) {
	f := newTestFilter()

	rejected, _ := f.Check("maybe this works, possibly not", fixedTime)
	assert.False(t, rejected)
}

func TestCheckLoopingOnThirdSubmission(t *testing.T) {
	// The literal scenario from the feedback pipeline: the same query three
	// times within one minute, no embedding provider involved.
	f := newTestFilter()
	query := "как создать функцию python"

	rejected, _ := f.Check(query, fixedTime)
	assert.False(t, rejected, "first submission accepted")

	rejected, _ = f.Check(query, fixedTime.Add(10*time.Second))
	assert.False(t, rejected, "second submission accepted")

	rejected, reason := f.Check(query, fixedTime.Add(20*time.Second))
	assert.True(t, rejected, "third submission rejected")
	assert.Equal(t, ReasonLooping, reason)
}

func TestCheckLoopingResetsAcrossBuckets(t *testing.T) {
	f := newTestFilter()
	query := "repeat me please now"

	f.Check(query, fixedTime)
	f.Check(query, fixedTime.Add(5*time.Second))

	// Two minutes later is a different bucket; the duplicates do not count.
	rejected, _ := f.Check(query, fixedTime.Add(2*time.Minute))
	assert.False(t, rejected)
}

func TestRejectionsNotRecordedInWindow(t *testing.T) {
	f := newTestFilter()
	noisy := "```code```"

	// Rejected submissions never feed the looping window.
	for i := 0; i < 5; i++ {
		rejected, reason := f.Check(noisy, fixedTime)
		assert.True(t, rejected)
		assert.Equal(t, ReasonTechnicalNoise, reason)
	}
	assert.Empty(t, f.window)
}

func TestWindowBounded(t *testing.T) {
	f := newTestFilter()

	texts := []string{
		"alpha question one", "beta question two", "gamma question three",
		"delta question four", "epsilon question five", "zeta question six",
		"eta question seven", "theta question eight", "iota question nine",
		"kappa question ten", "lambda question eleven", "mu question twelve",
	}
	for _, q := range texts {
		f.Check(q, fixedTime)
	}
	assert.Len(t, f.window, windowSize)
}
