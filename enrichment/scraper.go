package enrichment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

// ErrNotHTML страница не является HTML (например, PDF даташит)
var ErrNotHTML = errors.New("datasheet page is not html")

const maxPageSize = 4 << 20

// Scraper извлекает таблицу атрибутов со страницы товара или даташита
type Scraper interface {
	Scrape(ctx context.Context, url string) (map[string]string, error)
}

// ScraperConfig конфигурация скрейпера
type ScraperConfig struct {
	Timeout      time.Duration
	RequestDelay time.Duration
	UserAgent    string
	Cache        *PageCache
}

// PageScraper загружает страницы по HTTP с ограничением частоты запросов
type PageScraper struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	cache      *PageCache
}

// NewPageScraper создает скрейпер
func NewPageScraper(config ScraperConfig) *PageScraper {
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.RequestDelay == 0 {
		config.RequestDelay = time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "Mozilla/5.0 (compatible; ComponentEnricher/1.0)"
	}

	return &PageScraper{
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(rate.Every(config.RequestDelay), 1),
		userAgent:  config.UserAgent,
		cache:      config.Cache,
	}
}

// Scrape загружает страницу и возвращает найденные пары атрибутов
func (s *PageScraper) Scrape(ctx context.Context, url string) (map[string]string, error) {
	if s.cache != nil {
		if attrs, found := s.cache.Get(url); found {
			return attrs, nil
		}
	}
	if strings.HasSuffix(strings.ToLower(url), ".pdf") {
		return nil, ErrNotHTML
	}

	// Проверка лимита запросов
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "html") {
		return nil, ErrNotHTML
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, maxPageSize), contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to detect page charset: %w", err)
	}

	attrs, err := ParseAttributeTable(body)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(url, attrs)
	}
	return attrs, nil
}

// ParseAttributeTable разбирает таблицы «название / значение» и списки dl на странице
func ParseAttributeTable(r io.Reader) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	attrs := make(map[string]string)
	put := func(key, value string) {
		key = strings.TrimSuffix(collapse(key), ":")
		value = collapse(value)
		if key == "" || value == "" {
			return
		}
		if _, exists := attrs[key]; !exists {
			attrs[key] = value
		}
	}

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("th, td")
		if cells.Length() < 2 {
			return
		}
		put(cells.Eq(0).Text(), cells.Eq(1).Text())
	})

	doc.Find("dl").Each(func(_ int, list *goquery.Selection) {
		list.Find("dt").Each(func(_ int, term *goquery.Selection) {
			put(term.Text(), term.NextFiltered("dd").Text())
		})
	})

	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if strings.Contains(strings.ToLower(link.Text()), "datasheet") && strings.HasPrefix(href, "http") {
			put("Datasheet", href)
		}
	})

	return attrs, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
