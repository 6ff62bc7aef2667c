package extraction

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Dictionaries holds the curated token lists the entity extractor matches
// against. They ship with compiled-in defaults and can be replaced by a
// versioned YAML file so operators can extend them without a rebuild.
type Dictionaries struct {
	// Nationalities are canonical adjective forms, English and Norwegian.
	Nationalities []string `yaml:"nationalities"`
	// CitizenshipKeywords are citizenship/immigration domain tokens.
	CitizenshipKeywords []string `yaml:"citizenship_keywords"`
	// LanguageIndicators signal language proficiency or completed tests.
	LanguageIndicators []string `yaml:"language_indicators"`
	// ResidencyIndicators signal residency history.
	ResidencyIndicators []string `yaml:"residency_indicators"`
	// ResidencyDurationPhrases signal an explicit long residency duration.
	ResidencyDurationPhrases []string `yaml:"residency_duration_phrases"`
}

// DefaultDictionaries returns the compiled-in token lists.
func DefaultDictionaries() *Dictionaries {
	return &Dictionaries{
		Nationalities: []string{
			"norwegian", "norsk", "swedish", "svensk", "danish", "dansk",
			"finnish", "finsk", "icelandic", "islandsk",
			"german", "tysk", "french", "fransk", "british", "britisk",
			"american", "amerikansk", "polish", "polsk", "lithuanian", "litauisk",
			"somali", "somalisk", "eritrean", "eritreisk", "syrian", "syrisk",
			"iraqi", "irakisk", "afghan", "afghansk", "iranian", "iransk",
			"pakistani", "pakistansk", "indian", "indisk",
			"filipino", "philippine", "filippinsk",
			"thai", "thailandsk", "russian", "russisk", "ukrainian", "ukrainsk",
			"turkish", "tyrkisk", "ethiopian", "etiopisk", "colombian", "colombiansk",
			"chinese", "kinesisk", "vietnamese", "vietnamesisk",
			"stateless", "statsløs",
		},
		CitizenshipKeywords: []string{
			// English
			"citizenship", "nationality", "naturalization", "permanent residence",
			"residence permit", "work permit", "visa", "refugee", "asylum",
			"police clearance", "criminal record", "background check",
			"integration", "language test", "social studies",
			"fee", "application", "applicant", "passport", "identity",
			"birth certificate", "marriage certificate", "divorce",
			// Norwegian
			"statsborgerskap", "nasjonalitet", "innvilgelse", "søknad",
			"oppholdstillatelse", "permanent opphold", "arbeidstillatelse",
			"visum", "flyktning", "asyl", "politiattest", "vandelsattest",
			"integrering", "norskprøve", "samfunnskunnskap",
			"gebyr", "søker", "pass", "identitet",
			"fødselsattest", "vigselsattest", "skilsmisse",
			"utlendingsdirektoratet", "udi", "politi",
			"bosettingstillatelse", "midlertidig", "fornyelse",
		},
		LanguageIndicators: []string{
			"norskprøve", "norwegian test", "language certificate",
			"muntlig", "skriftlig", "oral", "written",
			"a1", "a2", "b1", "b2", "c1", "c2",
			"bestått", "passed", "godkjent", "approved",
			"samfunnskunnskap", "social studies", "civic integration",
			"norskkurs", "norwegian course", "language course",
			"kompetanse norge", "folkeuniversitetet",
		},
		ResidencyIndicators: []string{
			"years of residence", "years in norway", "år i norge", "botid",
			"permanent residence", "permanent opphold", "settled status",
			"continuous residence", "sammenhengende opphold",
			"registered address", "folkeregistrert",
			"d-number", "d-nummer", "national id", "fødselsnummer",
		},
		ResidencyDurationPhrases: []string{
			"years of residence", "years in norway", "år i norge",
			"continuous residence", "sammenhengende opphold", "botid",
		},
	}
}

// LoadDictionaries reads token lists from a YAML file. Missing keys fall back
// to the compiled-in defaults so a partial file stays valid.
func LoadDictionaries(path string) (*Dictionaries, error) {
	defaults := DefaultDictionaries()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dictionary file: %w", err)
	}

	var loaded Dictionaries
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parse dictionary file %s: %w", path, err)
	}

	if len(loaded.Nationalities) == 0 {
		loaded.Nationalities = defaults.Nationalities
	}
	if len(loaded.CitizenshipKeywords) == 0 {
		loaded.CitizenshipKeywords = defaults.CitizenshipKeywords
	}
	if len(loaded.LanguageIndicators) == 0 {
		loaded.LanguageIndicators = defaults.LanguageIndicators
	}
	if len(loaded.ResidencyIndicators) == 0 {
		loaded.ResidencyIndicators = defaults.ResidencyIndicators
	}
	if len(loaded.ResidencyDurationPhrases) == 0 {
		loaded.ResidencyDurationPhrases = defaults.ResidencyDurationPhrases
	}

	return &loaded, nil
}
