package classification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// Провайдеры языковых моделей
const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

// BackendConfig конфигурация бэкенда классификации
type BackendConfig struct {
	Provider string        `json:"provider" mapstructure:"provider"`
	Model    string        `json:"model" mapstructure:"model"`
	APIKey   string        `json:"-" mapstructure:"api_key"`
	BaseURL  string        `json:"base_url" mapstructure:"base_url"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
	// MaxCategories сколько известных категорий передавать в промпт
	MaxCategories int `json:"max_categories" mapstructure:"max_categories"`
}

// AIClassifier бэкенд классификации поверх языковой модели
type AIClassifier struct {
	llm    llms.Model
	config BackendConfig
	logger *slog.Logger

	totalRequests int64
	totalLatency  time.Duration
	perfMutex     sync.RWMutex
}

const systemPrompt = `You classify electronic components into inventory categories.
Prefer one of the known categories when it fits. Propose a short plural category name otherwise.
Reply with JSON only: {"category": "...", "confidence": 0.0-1.0, "reasoning": "short"}`

// NewAIClassifier создает бэкенд для указанного провайдера
func NewAIClassifier(config BackendConfig, logger *slog.Logger) (*AIClassifier, error) {
	var model llms.Model
	var err error

	switch strings.ToLower(config.Provider) {
	case ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(config.Model)}
		if config.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(config.BaseURL))
		}
		model, err = ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case ProviderOpenAI:
		if config.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		opts := []openai.Option{openai.WithToken(config.APIKey), openai.WithModel(config.Model)}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		model, err = openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case ProviderAnthropic:
		if config.APIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(config.APIKey),
			anthropic.WithModel(config.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}

	return NewAIClassifierWithModel(model, config, logger), nil
}

// NewAIClassifierWithModel создает бэкенд поверх готовой модели
func NewAIClassifierWithModel(model llms.Model, config BackendConfig, logger *slog.Logger) *AIClassifier {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxCategories <= 0 {
		config.MaxCategories = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AIClassifier{llm: model, config: config, logger: logger}
}

// Suggest запрашивает у модели категорию для описания
func (ai *AIClassifier) Suggest(ctx context.Context, req supplierimport.ClassificationRequest) (*supplierimport.ClassificationSuggestion, error) {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(ctx, ai.config.Timeout)
	defer cancel()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, ai.buildPrompt(req)),
	}

	response, err := ai.llm.GenerateContent(ctx, messages, llms.WithTemperature(0))
	ai.updatePerformanceMetrics(time.Since(startTime))
	if err != nil {
		return nil, fmt.Errorf("AI request failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no response choices")
	}

	ai.logger.Debug("[AIClassifier] classification completed", "latency", time.Since(startTime))
	return parseSuggestion(response.Choices[0].Content)
}

// buildPrompt строит пользовательский промпт
func (ai *AIClassifier) buildPrompt(req supplierimport.ClassificationRequest) string {
	known := req.Known
	more := 0
	if len(known) > ai.config.MaxCategories {
		more = len(known) - ai.config.MaxCategories
		known = known[:ai.config.MaxCategories]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Description: %s\n", req.Description)
	if req.Manufacturer != "" {
		fmt.Fprintf(&b, "Manufacturer: %s\n", req.Manufacturer)
	}
	if len(known) > 0 {
		fmt.Fprintf(&b, "Known categories: %s", strings.Join(known, ", "))
		if more > 0 {
			fmt.Fprintf(&b, " ... (+%d)", more)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// parseSuggestion разбирает JSON ответ модели, снимая markdown блоки
func parseSuggestion(response string) (*supplierimport.ClassificationSuggestion, error) {
	response = strings.TrimSpace(response)
	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
		response = strings.TrimSuffix(response, "```")
		response = strings.TrimSpace(response)
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
		response = strings.TrimSuffix(response, "```")
		response = strings.TrimSpace(response)
	}

	var suggestion supplierimport.ClassificationSuggestion
	if err := json.Unmarshal([]byte(response), &suggestion); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w, response: %s", err, response)
	}

	suggestion.Category = strings.TrimSpace(suggestion.Category)
	if suggestion.Category == "" {
		return nil, fmt.Errorf("empty category in AI response")
	}
	if suggestion.Confidence <= 0 || suggestion.Confidence > 1 {
		suggestion.Confidence = 0.7
	}
	return &suggestion, nil
}

func (ai *AIClassifier) updatePerformanceMetrics(latency time.Duration) {
	ai.perfMutex.Lock()
	defer ai.perfMutex.Unlock()

	ai.totalRequests++
	ai.totalLatency += latency
}

// GetPerformanceStats возвращает число запросов и среднюю задержку
func (ai *AIClassifier) GetPerformanceStats() (totalRequests int64, avgLatency time.Duration) {
	ai.perfMutex.RLock()
	defer ai.perfMutex.RUnlock()

	if ai.totalRequests > 0 {
		avgLatency = ai.totalLatency / time.Duration(ai.totalRequests)
	}
	return ai.totalRequests, avgLatency
}
