package classification

import (
	"strings"
	"sync"
	"unicode"

	"github.com/kljensen/snowball"
)

// stemCache кэш основ слов, общий для всех классификаторов процесса
var stemCache sync.Map

// stem возвращает основу английского слова по алгоритму Snowball
func stem(word string) string {
	if cached, ok := stemCache.Load(word); ok {
		return cached.(string)
	}

	stemmed, err := snowball.Stem(word, "english", true)
	if err != nil || stemmed == "" {
		stemmed = word
	}
	stemCache.Store(word, stemmed)
	return stemmed
}

// NormalizeName приводит имя категории к виду для сравнения:
// нижний регистр, без пунктуации, каждое слово заменено основой
func NormalizeName(name string) string {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, w := range words {
		words[i] = stem(w)
	}
	return strings.Join(words, " ")
}

// narrows сообщает, что specific содержит все слова general и еще хотя бы одно
func narrows(specific, general string) bool {
	ws, wg := strings.Fields(specific), strings.Fields(general)
	if len(wg) == 0 || len(ws) <= len(wg) {
		return false
	}

	set := make(map[string]bool, len(ws))
	for _, w := range ws {
		set[w] = true
	}
	for _, w := range wg {
		if !set[w] {
			return false
		}
	}
	return true
}

// NGramSimilarity индекс Жаккара по множествам n-грамм
func NGramSimilarity(s1, s2 string, n int) float64 {
	if s1 == s2 {
		return 1.0
	}

	grams1 := generateNGrams(s1, n)
	grams2 := generateNGrams(s2, n)
	if len(grams1) == 0 || len(grams2) == 0 {
		return 0.0
	}

	intersection := 0
	for key := range grams1 {
		if grams2[key] {
			intersection++
		}
	}
	union := len(grams1) + len(grams2) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// TrigramSimilarity схожесть по триграммам
func TrigramSimilarity(s1, s2 string) float64 {
	return NGramSimilarity(s1, s2, 3)
}

func generateNGrams(text string, n int) map[string]bool {
	runes := []rune(strings.ToLower(strings.TrimSpace(text)))
	grams := make(map[string]bool)
	if len(runes) == 0 {
		return grams
	}
	if len(runes) < n {
		grams[string(runes)] = true
		return grams
	}
	for i := 0; i <= len(runes)-n; i++ {
		grams[string(runes[i:i+n])] = true
	}
	return grams
}
