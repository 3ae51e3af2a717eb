package document

import (
	"errors"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"FinSight/internal/logger"
	"FinSight/internal/model"
)

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	text.Store = true
	text.Index = true
	docMapping.AddFieldMappingsAt("title", text)
	docMapping.AddFieldMappingsAt("content", text)

	keyword := bleve.NewKeywordFieldMapping()
	keyword.Store = true
	docMapping.AddFieldMappingsAt("source", keyword)

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}

// OpenIndex opens the index at path, creating an empty one if none exists.
func OpenIndex(path string) (bleve.Index, error) {
	log := logger.WithComponent("document")
	index, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		index, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		log.WithField("path", path).Info("created empty document index")
		return index, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	log.WithField("path", path).Info("opened document index")
	return index, nil
}

// NewMemIndex returns an in-memory index with the document mapping.
func NewMemIndex() (bleve.Index, error) {
	return bleve.NewMemOnly(buildIndexMapping())
}

// Put batch-indexes docs, replacing any with the same id.
func Put(index bleve.Index, docs []model.Document) error {
	batch := index.NewBatch()
	for _, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("document without id: %q", d.Title)
		}
		fields := map[string]interface{}{
			"title":   d.Title,
			"content": d.Content,
			"source":  d.Source,
		}
		if err := batch.Index(d.ID, fields); err != nil {
			return fmt.Errorf("add %s to batch: %w", d.ID, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		return fmt.Errorf("execute batch: %w", err)
	}
	return nil
}
