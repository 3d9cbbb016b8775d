package processor

import (
	"strings"
	"unicode"
)

type ProcessorConfig struct {
	MinTokenLength  int
	RemoveStopwords bool
	CustomStopwords []string
	Bigrams         bool
}

// Processor turns free text into the token stream fed to the local embedder.
type Processor struct {
	config    ProcessorConfig
	stopwords map[string]struct{}
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.MinTokenLength == 0 {
		config.MinTokenLength = 2
	}

	stopwords := make(map[string]struct{})
	if config.RemoveStopwords {
		for _, w := range getStopwords() {
			stopwords[w] = struct{}{}
		}
		for _, w := range config.CustomStopwords {
			stopwords[strings.ToLower(w)] = struct{}{}
		}
	}

	return Processor{
		config:    config,
		stopwords: stopwords,
	}
}

// Tokens returns the cleaned unigrams of text, followed by adjacent bigrams when enabled.
func (p *Processor) Tokens(text string) []string {
	words := p.words(p.cleanText(text))

	tokens := make([]string, 0, len(words)*2)
	tokens = append(tokens, words...)
	if p.config.Bigrams {
		for i := 0; i+1 < len(words); i++ {
			tokens = append(tokens, words[i]+"_"+words[i+1])
		}
	}
	return tokens
}

func (p *Processor) cleanText(text string) string {
	text = strings.ToLower(text)

	// Everything but letters and digits separates words; "mid-century" becomes two words.
	text = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, text)

	// Replace multiple spaces with single space
	return strings.Join(strings.Fields(text), " ")
}

func (p *Processor) words(text string) []string {
	var filtered []string
	for _, word := range strings.Fields(text) {
		if len([]rune(word)) < p.config.MinTokenLength {
			continue
		}
		if _, stop := p.stopwords[word]; stop {
			continue
		}
		filtered = append(filtered, stem(word))
	}
	return filtered
}

// stem strips a plural "s" so that "chairs" and "chair" land on the same feature.
func stem(word string) string {
	if len(word) > 3 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss") {
		return word[:len(word)-1]
	}
	return word
}

// Common English stopwords
func getStopwords() []string {
	return []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "any",
		"or", "this", "your", "into",
	}
}
