package search

import (
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// TranscriptDocument is one indexed narration transcript.
type TranscriptDocument struct {
	Slug        string
	Text        string // extracted narration text, break markers stripped
	Hash        string
	Duration    float64 // seconds
	GeneratedAt time.Time
}

// toMap flattens the document so field names match the mapping exactly.
func (d *TranscriptDocument) toMap() map[string]any {
	return map[string]any{
		"slug":         d.Slug,
		"text":         d.Text,
		"hash":         d.Hash,
		"duration":     d.Duration,
		"generated_at": float64(d.GeneratedAt.UnixMilli()),
	}
}

// buildIndexMapping creates the Bleve index mapping for transcripts.
//
// Priorities:
//  1. Full-text search over transcript text with English stemming
//  2. Term vectors on text for match highlighting
//  3. Exact keyword matching on slug and hash
//  4. Numeric range queries on duration and generation time
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// Transcript text - the primary search target
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = en.AnalyzerName
	textFieldMapping.Store = true
	textFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("text", textFieldMapping)

	// Slug - stored but not analyzed
	slugFieldMapping := bleve.NewTextFieldMapping()
	slugFieldMapping.Analyzer = keyword.Name
	slugFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("slug", slugFieldMapping)

	// Hash - exact match only, lets tooling find stale documents
	hashFieldMapping := bleve.NewTextFieldMapping()
	hashFieldMapping.Analyzer = keyword.Name
	hashFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("hash", hashFieldMapping)

	// Duration - for range filtering
	durationFieldMapping := bleve.NewNumericFieldMapping()
	durationFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("duration", durationFieldMapping)

	// Generation timestamp - for sorting by recency
	generatedAtFieldMapping := bleve.NewNumericFieldMapping()
	generatedAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("generated_at", generatedAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}
