package currency

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultECBURL ежедневные референсные курсы ЕЦБ
const DefaultECBURL = "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-daily.xml"

// StaticSource фиксированные курсы из конфигурации
type StaticSource struct {
	rates map[string]decimal.Decimal
}

// NewStaticSource создает источник из карты "код -> курс к базовой валюте"
func NewStaticSource(rates map[string]float64) *StaticSource {
	s := &StaticSource{rates: make(map[string]decimal.Decimal, len(rates))}
	for code, rate := range rates {
		s.rates[strings.ToUpper(code)] = decimal.NewFromFloat(rate)
	}
	return s
}

// Rate возвращает сконфигурированный курс
func (s *StaticSource) Rate(_ context.Context, currency string) (decimal.Decimal, error) {
	rate, ok := s.rates[strings.ToUpper(currency)]
	if !ok {
		return decimal.Zero, fmt.Errorf("no static rate for %s", currency)
	}
	return rate, nil
}

// ecbEnvelope формат eurofxref-daily.xml
type ecbEnvelope struct {
	Cube struct {
		Cube struct {
			Time  string `xml:"time,attr"`
			Rates []struct {
				Currency string `xml:"currency,attr"`
				Rate     string `xml:"rate,attr"`
			} `xml:"Cube"`
		} `xml:"Cube"`
	} `xml:"Cube"`
}

// ECBSource курсы Европейского центрального банка. Один HTTP запрос отдает все валюты.
type ECBSource struct {
	url        string
	reference  string
	httpClient *http.Client
	retry      RetryConfig

	mutex     sync.Mutex
	perEUR    map[string]decimal.Decimal
	fetchedAt time.Time
	maxAge    time.Duration
}

// NewECBSource создает источник курсов ЕЦБ
func NewECBSource(url, reference string, timeout time.Duration) *ECBSource {
	if url == "" {
		url = DefaultECBURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ECBSource{
		url:        url,
		reference:  strings.ToUpper(reference),
		httpClient: &http.Client{Timeout: timeout},
		retry:      DefaultRetryConfig(),
		maxAge:     time.Hour,
	}
}

// Rate возвращает стоимость одной единицы currency в базовой валюте
func (s *ECBSource) Rate(ctx context.Context, currency string) (decimal.Decimal, error) {
	perEUR, err := s.table(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	currency = strings.ToUpper(currency)
	foreign, ok := perEUR[currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("ecb does not publish %s", currency)
	}
	ref, ok := perEUR[s.reference]
	if !ok {
		return decimal.Zero, fmt.Errorf("ecb does not publish reference currency %s", s.reference)
	}

	return ref.DivRound(foreign, 8), nil
}

func (s *ECBSource) table(ctx context.Context) (map[string]decimal.Decimal, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.perEUR != nil && time.Since(s.fetchedAt) < s.maxAge {
		return s.perEUR, nil
	}

	var table map[string]decimal.Decimal
	err := retry(ctx, s.retry, func() error {
		var fetchErr error
		table, fetchErr = s.fetch(ctx)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	s.perEUR = table
	s.fetchedAt = time.Now()
	return table, nil
}

func (s *ECBSource) fetch(ctx context.Context) (map[string]decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, permanent(fmt.Errorf("failed to build ecb request: %w", err))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ecb request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("ecb returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, permanent(fmt.Errorf("ecb returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read ecb response: %w", err)
	}

	return parseECB(body)
}

// parseECB разбирает XML ЕЦБ в таблицу "единиц валюты за 1 EUR"
func parseECB(body []byte) (map[string]decimal.Decimal, error) {
	var env ecbEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, permanent(fmt.Errorf("failed to parse ecb xml: %w", err))
	}

	table := map[string]decimal.Decimal{"EUR": decimal.NewFromInt(1)}
	for _, r := range env.Cube.Cube.Rates {
		rate, err := decimal.NewFromString(strings.TrimSpace(r.Rate))
		if err != nil || !rate.IsPositive() {
			continue
		}
		table[strings.ToUpper(r.Currency)] = rate
	}

	if len(table) == 1 {
		return nil, permanent(fmt.Errorf("ecb xml contains no rates"))
	}
	return table, nil
}
