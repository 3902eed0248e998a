package classification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// ClassifierConfig настройки классификатора категорий
type ClassifierConfig struct {
	// SimilarityThreshold порог триграммной схожести для повторного использования категории
	SimilarityThreshold float64 `json:"similarity_threshold" mapstructure:"similarity_threshold"`
	// MinConfidence ответы модели с меньшей уверенностью заменяются правилами
	MinConfidence float64 `json:"min_confidence" mapstructure:"min_confidence"`
}

// DefaultClassifierConfig значения по умолчанию
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{SimilarityThreshold: 0.8, MinConfidence: 0.3}
}

// Classification результат классификации
type Classification struct {
	Category *supplierimport.Category `json:"category"`
	// Source "backend" или "keywords"
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
	Created    bool    `json:"created"`
}

// CategoryClassifier определяет категорию компонента и не допускает дублей категорий
type CategoryClassifier struct {
	backend supplierimport.ClassifierBackend
	repo    supplierimport.CategoryRepository
	cache   *CategoryCache
	rules   KeywordRules
	config  ClassifierConfig
	logger  *slog.Logger

	// createMutex сериализует создание категорий
	createMutex sync.Mutex
}

// NewCategoryClassifier создает классификатор. backend == nil означает только правила.
func NewCategoryClassifier(backend supplierimport.ClassifierBackend, repo supplierimport.CategoryRepository, cache *CategoryCache, config ClassifierConfig, logger *slog.Logger) *CategoryClassifier {
	if cache == nil {
		cache = NewCategoryCache(repo, 0)
	}
	if config.SimilarityThreshold <= 0 || config.SimilarityThreshold > 1 {
		config.SimilarityThreshold = 0.8
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CategoryClassifier{
		backend: backend,
		repo:    repo,
		cache:   cache,
		rules:   DefaultKeywordRules(),
		config:  config,
		logger:  logger,
	}
}

// SetRules заменяет таблицу ключевых слов
func (c *CategoryClassifier) SetRules(rules KeywordRules) {
	if len(rules) > 0 {
		c.rules = rules
	}
}

// Classify возвращает категорию для описания компонента. Недоступный бэкенд
// не является ошибкой: используется таблица ключевых слов.
func (c *CategoryClassifier) Classify(ctx context.Context, description, manufacturer string) (*supplierimport.Category, error) {
	result, err := c.ClassifyDetailed(ctx, description, manufacturer)
	if err != nil {
		return nil, err
	}
	return result.Category, nil
}

// ClassifyDetailed как Classify, но сообщает источник и факт создания категории
func (c *CategoryClassifier) ClassifyDetailed(ctx context.Context, description, manufacturer string) (*Classification, error) {
	known, err := c.cache.List(ctx)
	if err != nil {
		return nil, err
	}

	name, source, confidence := c.suggest(ctx, description, manufacturer, known)

	// имена из таблицы ключевых слов различаются намеренно: SMD Resistors и Resistors не сливаются
	category, created, err := c.resolve(ctx, name, source == "backend")
	if err != nil {
		return nil, err
	}
	return &Classification{Category: category, Source: source, Confidence: confidence, Created: created}, nil
}

// ResolveName возвращает существующую похожую категорию или создает новую
func (c *CategoryClassifier) ResolveName(ctx context.Context, name string) (*supplierimport.Category, error) {
	if strings.TrimSpace(name) == "" {
		return nil, supplierimport.ErrCategoryNotFound
	}
	category, _, err := c.resolve(ctx, name, true)
	return category, err
}

func (c *CategoryClassifier) suggest(ctx context.Context, description, manufacturer string, known []supplierimport.Category) (string, string, float64) {
	if c.backend != nil {
		names := make([]string, len(known))
		for i, k := range known {
			names[i] = k.Name
		}

		suggestion, err := c.backend.Suggest(ctx, supplierimport.ClassificationRequest{
			Description:  description,
			Manufacturer: manufacturer,
			Known:        names,
		})
		switch {
		case err != nil:
			c.logger.Warn("[CategoryClassifier] backend failed, using keyword rules",
				"error", err, "description", description)
		case suggestion.Confidence < c.config.MinConfidence:
			c.logger.Warn("[CategoryClassifier] backend confidence too low, using keyword rules",
				"category", suggestion.Category, "confidence", suggestion.Confidence)
		default:
			return suggestion.Category, "backend", suggestion.Confidence
		}
	}

	return c.rules.Match(description), "keywords", 1.0
}

// resolve находит категорию по имени с учетом дублей либо создает ее.
// fuzzy включает поиск по вхождению слов и триграммам для внешних имен.
func (c *CategoryClassifier) resolve(ctx context.Context, name string, fuzzy bool) (*supplierimport.Category, bool, error) {
	name = strings.TrimSpace(name)

	known, err := c.cache.List(ctx)
	if err != nil {
		return nil, false, err
	}
	if existing := c.match(name, known, fuzzy); existing != nil {
		return existing, false, nil
	}

	c.createMutex.Lock()
	defer c.createMutex.Unlock()

	// другая горутина могла создать категорию, пока мы ждали
	known, err = c.cache.Reload(ctx)
	if err != nil {
		return nil, false, err
	}
	if existing := c.match(name, known, fuzzy); existing != nil {
		return existing, false, nil
	}

	created, err := c.repo.Create(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create category %q: %w", name, err)
	}
	c.cache.Add(*created)
	c.logger.Info("[CategoryClassifier] category created", "category", created.Name, "id", created.ID)
	return created, true, nil
}

// match ищет существующую категорию: точное совпадение нормализованных имен,
// а для fuzzy еще известную категорию, которую name уточняет, и триграммную схожесть не ниже порога
func (c *CategoryClassifier) match(name string, known []supplierimport.Category, fuzzy bool) *supplierimport.Category {
	target := NormalizeName(name)
	if target == "" {
		return nil
	}

	normalized := make([]string, len(known))
	for i, k := range known {
		normalized[i] = NormalizeName(k.Name)
		if normalized[i] == target {
			return &known[i]
		}
	}
	if !fuzzy {
		return nil
	}

	for i := range known {
		if narrows(target, normalized[i]) {
			return &known[i]
		}
	}

	best, bestScore := -1, 0.0
	for i := range known {
		score := TrigramSimilarity(target, normalized[i])
		if score >= c.config.SimilarityThreshold && score > bestScore {
			best, bestScore = i, score
		}
	}
	if best >= 0 {
		return &known[best]
	}
	return nil
}
