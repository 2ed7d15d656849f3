// Package vocab loads and indexes the vocabulary topics quizzes draw from.
package vocab

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"wlingo-quiz-service/internal/domain"
	"wlingo-quiz-service/internal/logger"
)

// DemoTopic is installed when no source yields a usable topic.
const DemoTopic = "default_dummy"

var demoWords = []domain.VocabularyEntry{
	{Word: "Hund", Translation: "dog"},
	{Word: "Katze", Translation: "cat"},
	{Word: "Baum", Translation: "tree"},
	{Word: "Haus", Translation: "house"},
	{Word: "Wasser", Translation: "water"},
}

// Source yields topics keyed by topic id.
type Source interface {
	Name() string
	LoadTopics(ctx context.Context) (map[string][]domain.VocabularyEntry, error)
}

// Catalog holds every loaded topic. It is rebuilt wholesale on reload and
// read-only otherwise.
type Catalog struct {
	sources []Source
	log     *logger.Logger
	sf      singleflight.Group

	mu     sync.RWMutex
	topics map[string][]domain.VocabularyEntry
}

func NewCatalog(log *logger.Logger, sources ...Source) *Catalog {
	return &Catalog{
		sources: sources,
		log:     log.With("component", "vocab"),
		topics:  map[string][]domain.VocabularyEntry{},
	}
}

// LoadAll reads every source. Source failures are logged and skipped; an
// empty result installs the demo topic.
func (c *Catalog) LoadAll(ctx context.Context) error {
	return c.Reload(ctx)
}

// Reload rebuilds the catalog. Concurrent callers share one load, which is
// detached from any single caller's cancellation; a cancelled caller stops
// waiting but the load continues for the others.
func (c *Catalog) Reload(ctx context.Context) error {
	loadCtx := context.WithoutCancel(ctx)
	ch := c.sf.DoChan("reload", func() (interface{}, error) {
		merged := map[string][]domain.VocabularyEntry{}
		for _, src := range c.sources {
			topics, err := src.LoadTopics(loadCtx)
			if err != nil {
				c.log.Warn("vocabulary source failed", "source", src.Name(), "error", err)
				continue
			}
			for id, words := range topics {
				if len(words) == 0 {
					continue
				}
				merged[id] = words
			}
		}
		if len(merged) == 0 {
			c.log.Warn("no vocabulary topics found, loading demo data")
			merged[DemoTopic] = slices.Clone(demoWords)
		}

		c.mu.Lock()
		c.topics = merged
		c.mu.Unlock()
		c.log.Info("vocabulary loaded", "topics", len(merged))
		return nil, nil
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Words returns the entries for topic, or nil when the topic is unknown.
func (c *Catalog) Words(topic string) []domain.VocabularyEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.topics[topic])
}

// Has reports whether topic exists and has at least one word.
func (c *Catalog) Has(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.topics[topic]) > 0
}

// Topics lists every topic sorted by display name.
func (c *Catalog) Topics() []domain.Topic {
	c.mu.RLock()
	out := make([]domain.Topic, 0, len(c.topics))
	for id, words := range c.topics {
		out = append(out, domain.Topic{ID: id, DisplayName: DisplayName(id), Count: len(words)})
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// DefaultTopic is the first listed topic, used when a requested one is unknown.
func (c *Catalog) DefaultTopic() string {
	if topics := c.Topics(); len(topics) > 0 {
		return topics[0].ID
	}
	return DemoTopic
}

var separators = strings.NewReplacer("_", " ", "-", " ")

// DisplayName turns "german_basic" into "German Basic".
func DisplayName(id string) string {
	return cases.Title(language.Und).String(strings.Join(strings.Fields(separators.Replace(id)), " "))
}
