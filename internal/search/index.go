// Package search keeps an in-memory full-text index over feed posts.
package search

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/Muragesh-24/ENGIGROW/internal/domain"
)

// Index wraps a memory-only Bleve index. Safe for concurrent use.
type Index struct {
	index bleve.Index
}

type indexedPost struct {
	Body   string
	Author string
}

// Hit is a matching post id with its relevance score.
type Hit struct {
	PostID string
	Score  float64
}

func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	body := bleve.NewTextFieldMapping()
	body.Analyzer = "en"
	author := bleve.NewTextFieldMapping()
	author.Analyzer = "en"

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("Body", body)
	docMapping.AddFieldMappingsAt("Author", author)

	// unqualified queries hit _all and must stem the same way
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = "en"
	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func (i *Index) Close() error {
	return i.index.Close()
}

// IndexPost adds or replaces a post.
func (i *Index) IndexPost(post domain.Post) error {
	if err := i.index.Index(post.ID, indexedPost{Body: post.Body, Author: post.AuthorName}); err != nil {
		return fmt.Errorf("index post %s: %w", post.ID, err)
	}
	return nil
}

// IndexPosts indexes posts in a single batch. Used to seed the index at startup.
func (i *Index) IndexPosts(posts []domain.Post) error {
	batch := i.index.NewBatch()
	for _, post := range posts {
		if err := batch.Index(post.ID, indexedPost{Body: post.Body, Author: post.AuthorName}); err != nil {
			return fmt.Errorf("batch index %s: %w", post.ID, err)
		}
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Search runs a query-string query and returns hits best match first.
func (i *Index) Search(query string, limit int) ([]Hit, error) {
	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(query), limit, 0, false)
	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{PostID: h.ID, Score: h.Score})
	}
	return hits, nil
}

func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}
