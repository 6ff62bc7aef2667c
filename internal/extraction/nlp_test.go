package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const norwegianSample = `
Politiattest
Navn: Ola Nordmann
Fødselsnummer: 01027012345
Passnummer: NO1234567
Utstedt: 15.06.2020 i 0150 Oslo
Adresse: Storgata 12, 0155 Oslo
Søknad om statsborgerskap etter 7 år i Norge.
Permanent opphold innvilget. Norskprøve bestått nivå B1.
`

const englishSample = `
Residence permit statement
Full name: Maria Santos
Nationality: Filipino
Passport number: AB1234567
Issued 3 March 2019.
Holder has permanent residence and 5 years of residence in Norway.
Language certificate: passed written exam.
`

func TestEntities_NorwegianDocument(t *testing.T) {
	provider := NewRegexEntityProvider(DefaultDictionaries())
	fields := provider.Entities(norwegianSample)

	assert.Contains(t, fields.Dates, "15.06.2020")
	assert.Contains(t, fields.PassportNumbers, "NO1234567")
	assert.Contains(t, fields.PassportNumbers, "01027012345")
	assert.Contains(t, fields.Persons, "Ola Nordmann")
	assert.Contains(t, fields.CitizenshipKeywords, "statsborgerskap")
	assert.Contains(t, fields.CitizenshipKeywords, "politiattest")
	assert.Contains(t, fields.LanguageSignals, "norskprøve")
	assert.Contains(t, fields.LanguageSignals, "bestått")
	assert.Contains(t, fields.ResidencySignals, "permanent opphold")
	assert.NotEmpty(t, fields.Locations)
	assert.Greater(t, fields.EntityRichness, 0.0)
}

func TestEntities_EnglishDocument(t *testing.T) {
	provider := NewRegexEntityProvider(DefaultDictionaries())
	fields := provider.Entities(englishSample)

	assert.Contains(t, fields.PassportNumbers, "AB1234567")
	assert.Contains(t, fields.Persons, "Maria Santos")
	assert.Contains(t, fields.Nationalities, "filipino")
	assert.Contains(t, fields.Dates, "3 March 2019")
	assert.Contains(t, fields.ResidencySignals, "permanent residence")
	assert.NotEmpty(t, fields.LanguageSignals)
}

func TestEntities_EmptyText(t *testing.T) {
	provider := NewRegexEntityProvider(DefaultDictionaries())

	fields := provider.Entities("")
	assert.Zero(t, fields.TotalEntities())
	assert.Zero(t, fields.EntityRichness)

	fields = provider.Entities("   \n\t  ")
	assert.Zero(t, fields.TotalEntities())
}

func TestEntities_Deterministic(t *testing.T) {
	provider := NewRegexEntityProvider(DefaultDictionaries())

	first := provider.Entities(norwegianSample)
	second := provider.Entities(norwegianSample)
	assert.Equal(t, first, second)
}

func TestEntities_RichnessSaturatesAtOne(t *testing.T) {
	provider := NewRegexEntityProvider(DefaultDictionaries())

	// A text dense enough to exceed 20 distinct entities.
	text := norwegianSample + englishSample + `
Dates: 01.01.2010 02.02.2011 03.03.2012 04.04.2013 05.05.2014
06.06.2015 07.07.2016 08.08.2017 09.09.2018 10.10.2019
Visa, refugee, asylum, integration, naturalization, oppholdstillatelse.
`
	fields := provider.Entities(text)
	require.GreaterOrEqual(t, fields.TotalEntities(), 20)
	assert.Equal(t, 1.0, fields.EntityRichness)
}

func TestEntities_DeduplicatesCaseInsensitively(t *testing.T) {
	provider := NewRegexEntityProvider(DefaultDictionaries())

	fields := provider.Entities("Passport AB1234567 passport ab1234567 PASSPORT")
	count := 0
	for _, number := range fields.PassportNumbers {
		if number == "AB1234567" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestHasDurationPhrase(t *testing.T) {
	provider := NewRegexEntityProvider(DefaultDictionaries())

	assert.True(t, provider.HasDurationPhrase("7 years in Norway"))
	assert.True(t, provider.HasDurationPhrase("dokumentert botid"))
	assert.True(t, provider.HasDurationPhrase("3 år sammenhengende opphold"))
	assert.False(t, provider.HasDurationPhrase("no relevant content"))
}

func TestLoadDictionaries_EmptyPathUsesDefaults(t *testing.T) {
	dict, err := LoadDictionaries("")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(dict.Nationalities), 50)
	assert.NotEmpty(t, dict.CitizenshipKeywords)
	assert.NotEmpty(t, dict.LanguageIndicators)
	assert.NotEmpty(t, dict.ResidencyIndicators)
}
