package core

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/huangsam/insight/internal/contract"
	"github.com/huangsam/insight/schema"
	"github.com/src-d/enry/v2"
	"go.uber.org/zap"
)

// languageSampleBytes is how much of a file the classifier looks at.
const languageSampleBytes = 16 * 1024

// ArtifactBuilder enriches a summarized artifact with file stats and a score.
type ArtifactBuilder struct {
	cfg      *contract.Config
	artifact schema.Artifact
	now      time.Time
	content  []byte
}

// NewArtifactBuilder is the starting point for enriching one artifact.
func NewArtifactBuilder(cfg *contract.Config, artifact schema.Artifact, now time.Time) *ArtifactBuilder {
	return &ArtifactBuilder{cfg: cfg, artifact: artifact, now: now}
}

// FetchFileStats reads the latest local file for its size and line count.
func (b *ArtifactBuilder) FetchFileStats() *ArtifactBuilder {
	if b.artifact.LocalPath == "" {
		return b
	}
	content, err := os.ReadFile(b.artifact.LocalPath)
	if err != nil {
		contract.Logger().Debug("file stats unavailable",
			zap.String("path", b.artifact.LocalPath), zap.Error(err))
		return b
	}
	b.content = content
	b.artifact.SizeBytes = int64(len(content))
	b.artifact.LinesOfCode = bytes.Count(content, []byte{'\n'})
	return b
}

// ClassifyLanguage names the programming language of the artifact.
// Files that could not be read are classified by name alone.
func (b *ArtifactBuilder) ClassifyLanguage() *ArtifactBuilder {
	name := filepath.Base(b.artifact.LocalPath)
	if name == "." || name == string(filepath.Separator) {
		return b
	}
	sample := b.content
	if len(sample) > languageSampleBytes {
		sample = sample[:languageSampleBytes]
	}
	b.artifact.Language = enry.GetLanguage(name, sample)
	return b
}

// CalculateAge computes the days since the latest change.
func (b *ArtifactBuilder) CalculateAge() *ArtifactBuilder {
	if b.artifact.Date.IsZero() || b.artifact.Date.After(b.now) {
		b.artifact.AgeDays = 0
		return b
	}
	b.artifact.AgeDays = int(b.now.Sub(b.artifact.Date).Hours() / 24)
	return b
}

// CalculateScore computes the final composite score.
func (b *ArtifactBuilder) CalculateScore() *ArtifactBuilder {
	b.artifact.Score = computeScore(&b.artifact, b.cfg.Weights)
	return b
}

// Build finalizes the construction and returns the enriched artifact.
func (b *ArtifactBuilder) Build() schema.Artifact {
	b.content = nil
	return b.artifact
}
