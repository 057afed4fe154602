package classify

import (
	"context"
	"time"

	"crimewatch/metrics"
	"crimewatch/models"
	"crimewatch/parser"

	"github.com/apex/log"
)

// LLM is a vision-enabled model that turns media plus reporter text into a
// raw text answer. Satisfied by gemini.Client.
type LLM interface {
	SourceName() string
	AnalyzeMedia(ctx context.Context, media []byte, mimeType, reporterText string) (string, error)
}

// Classifier wraps an LLM and a parser into a port that never fails: any
// transport or parse error yields the default classification so the workflow
// always has something to work with.
type Classifier struct {
	llm      LLM
	timeout  time.Duration
	fallback models.CrimeType
}

func New(llm LLM, timeout time.Duration, fallback string) *Classifier {
	fb := parser.NormalizeCrimeType(fallback)
	return &Classifier{
		llm:      llm,
		timeout:  timeout,
		fallback: fb,
	}
}

// Classify analyzes one media item. It never returns an error; failures are
// logged and mapped to the default classification. The call is bounded by the
// configured timeout and aborts early if ctx is cancelled.
func (c *Classifier) Classify(ctx context.Context, media []byte, mimeType, reporterText string) *models.Classification {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	response, err := c.llm.AnalyzeMedia(ctx, media, mimeType, reporterText)
	if err != nil {
		log.Errorf("%s analysis failed: %v", c.llm.SourceName(), err)
		metrics.ClassifyTotal.WithLabelValues("transport_error").Inc()
		metrics.ClassifyDurationSeconds.WithLabelValues("transport_error").Observe(time.Since(start).Seconds())
		return models.DefaultClassification(c.fallback)
	}

	result, err := parser.ParseClassification(response)
	if err != nil {
		log.Errorf("Failed to parse %s response: %v", c.llm.SourceName(), err)
		metrics.ClassifyTotal.WithLabelValues("parse_error").Inc()
		metrics.ClassifyDurationSeconds.WithLabelValues("parse_error").Observe(time.Since(start).Seconds())
		return models.DefaultClassification(c.fallback)
	}

	metrics.ClassifyTotal.WithLabelValues("ok").Inc()
	metrics.ClassifyDurationSeconds.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	return result
}
