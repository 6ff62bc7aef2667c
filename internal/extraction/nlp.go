package extraction

import (
	"regexp"
	"sort"
	"strings"

	"github.com/devlinduldulao/citizenship-application/internal/application/domain"
)

// EntityProvider extracts structured entities from document text.
type EntityProvider interface {
	Entities(text string) domain.ExtractedFields
}

// entityRichnessDivisor normalizes the per-document entity count into [0,1].
const entityRichnessDivisor = 20

// Dates: DD.MM.YYYY, DD/MM/YYYY, DD-MM-YYYY, YYYY-MM-DD and written months
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{1,2}[./\-]\d{1,2}[./\-]\d{4})\b`),
	regexp.MustCompile(`\b(\d{4}[.\-/]\d{1,2}[.\-/]\d{1,2})\b`),
	regexp.MustCompile(`(?i)\b(\d{1,2}\s+(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\s+\d{4})\b`),
	// Norwegian month names
	regexp.MustCompile(`(?i)\b(\d{1,2}\s+(?:januar|februar|mars|april|mai|juni|juli|august|september|oktober|november|desember)\s+\d{4})\b`),
}

// Passport / national identifier numbers
var identifierPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b([A-Z]{1,2}\d{6,9})\b`),
	regexp.MustCompile(`\b(\d{6,9})\b`),
	// Norwegian fødselsnummer: 11 digits, optionally grouped DDMMYY NNNNN
	regexp.MustCompile(`\b(\d{11})\b`),
	regexp.MustCompile(`\b(\d{6}\s\d{5})\b`),
}

// Locations: Norwegian postal codes ("0001 Oslo") and street addresses
var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{4}\s+[A-ZÆØÅ][a-zæøå]+(?:\s+[A-ZÆØÅ][a-zæøå]+)*)\b`),
	regexp.MustCompile(`\b([A-ZÆØÅ][a-zæøå]+(?:gata|gaten|veien|vegen|gate|vei|veg)\s+\d+)`),
}

// Persons: labelled name lines, English and Norwegian
var personPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:full\s+)?name\s*:\s*(.+)`),
	regexp.MustCompile(`(?i)(?:fullt\s+)?navn\s*:\s*(.+)`),
	regexp.MustCompile(`(?i)(?:surname|etternavn)\s*:\s*(.+)`),
	regexp.MustCompile(`(?i)(?:given\s+name|fornavn)\s*:\s*(.+)`),
}

// Residency duration: "7 years", "3 år"
var durationPattern = regexp.MustCompile(`(?i)\b\d{1,2}\s+(?:years?|år)\b`)

// RegexEntityProvider is the built-in NLP provider: dictionary and pattern
// matching tuned for Norwegian citizenship paperwork. It satisfies the
// EntityProvider contract so a model-backed provider can replace it without
// touching the pipeline.
type RegexEntityProvider struct {
	dict *Dictionaries
}

// NewRegexEntityProvider creates the built-in entity provider.
func NewRegexEntityProvider(dict *Dictionaries) *RegexEntityProvider {
	if dict == nil {
		dict = DefaultDictionaries()
	}
	return &RegexEntityProvider{dict: dict}
}

// Entities extracts the typed evidence bag from document text. Output is
// deterministic: every list is deduplicated and sorted.
func (p *RegexEntityProvider) Entities(text string) domain.ExtractedFields {
	fields := domain.ExtractedFields{}
	if strings.TrimSpace(text) == "" {
		return fields
	}

	lower := strings.ToLower(text)

	for _, pattern := range datePatterns {
		for _, match := range pattern.FindAllString(text, -1) {
			fields.Dates = append(fields.Dates, match)
		}
	}
	fields.Dates = dedupeSorted(fields.Dates)

	for _, pattern := range identifierPatterns {
		for _, match := range pattern.FindAllString(text, -1) {
			fields.PassportNumbers = append(fields.PassportNumbers, strings.ToUpper(match))
		}
	}
	fields.PassportNumbers = dedupeSorted(fields.PassportNumbers)

	fields.Nationalities = dedupeSorted(matchTokens(lower, p.dict.Nationalities))
	fields.CitizenshipKeywords = dedupeSorted(matchTokens(lower, p.dict.CitizenshipKeywords))
	fields.LanguageSignals = dedupeSorted(matchTokens(lower, p.dict.LanguageIndicators))

	residency := matchTokens(lower, p.dict.ResidencyIndicators)
	residency = append(residency, durationPattern.FindAllString(text, -1)...)
	fields.ResidencySignals = dedupeSorted(residency)

	for _, pattern := range locationPatterns {
		for _, match := range pattern.FindAllString(text, -1) {
			fields.Locations = append(fields.Locations, match)
		}
	}
	fields.Locations = dedupeSorted(fields.Locations)

	for _, pattern := range personPatterns {
		for _, groups := range pattern.FindAllStringSubmatch(text, -1) {
			name := strings.TrimSpace(groups[1])
			if name != "" {
				fields.Persons = append(fields.Persons, name)
			}
		}
	}
	fields.Persons = append(fields.Persons, titleCaseNames(text)...)
	fields.Persons = dedupeSorted(fields.Persons)

	total := fields.TotalEntities()
	fields.EntityRichness = entityRichness(total)

	return fields
}

// HasDurationPhrase reports whether the text contains a residency-duration
// phrase from the curated list or an explicit "N years / N år" span.
func (p *RegexEntityProvider) HasDurationPhrase(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range p.dict.ResidencyDurationPhrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return true
		}
	}
	return durationPattern.MatchString(text)
}

func entityRichness(totalEntities int) float64 {
	richness := float64(totalEntities) / entityRichnessDivisor
	if richness > 1 {
		return 1
	}
	return richness
}

// titleCaseNames finds two consecutive title-case words, a weak heuristic for
// person names in free text without a labelled line.
var titleCasePattern = regexp.MustCompile(`\b([A-ZÆØÅ][a-zæøå]{2,}\s+[A-ZÆØÅ][a-zæøå]{2,})\b`)

func titleCaseNames(text string) []string {
	var names []string
	for _, match := range titleCasePattern.FindAllString(text, -1) {
		names = append(names, match)
	}
	return names
}

func matchTokens(lowerText string, tokens []string) []string {
	var found []string
	for _, token := range tokens {
		if strings.Contains(lowerText, strings.ToLower(token)) {
			found = append(found, token)
		}
	}
	return found
}

// dedupeSorted removes duplicates case-insensitively and sorts the result so
// repeated runs over the same text serialize identically.
func dedupeSorted(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	var result []string
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		key := strings.ToLower(trimmed)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, trimmed)
	}
	sort.Strings(result)
	return result
}
