package characters

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed characters.yaml
var defaultCatalogue []byte

// ErrNotFound is returned when a character id is not in the catalogue.
var ErrNotFound = errors.New("characters: character not found")

// Character is a persona the user can chat with.
type Character struct {
	ID                  string              `yaml:"id" json:"id"`
	Name                string              `yaml:"name" json:"name"`
	Description         string              `yaml:"description" json:"description"`
	Image               string              `yaml:"image" json:"image"`
	Avatar              string              `yaml:"avatar" json:"avatar"`
	Personality         string              `yaml:"personality" json:"personality"`
	InitialMessage      map[string]string   `yaml:"initial_message" json:"initialMessage"`
	InitialMessageAdult map[string]string   `yaml:"initial_message_adult,omitempty" json:"initialMessageAdult,omitempty"`
	Responses           map[string][]string `yaml:"responses" json:"-"`

	fallbackLanguage string
}

type catalogueFile struct {
	DefaultLanguage string       `yaml:"default_language"`
	Characters      []*Character `yaml:"characters"`
}

// Catalogue is an immutable, ordered set of characters.
type Catalogue struct {
	defaultLanguage string
	order           []*Character
	byID            map[string]*Character
}

// Default returns the catalogue embedded in the binary.
func Default() (*Catalogue, error) {
	return Parse(defaultCatalogue)
}

// Load reads a catalogue from a YAML file.
func Load(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read character catalogue: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalogue.
func Parse(data []byte) (*Catalogue, error) {
	var file catalogueFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse character catalogue: %w", err)
	}
	if file.DefaultLanguage == "" {
		file.DefaultLanguage = "en"
	}
	if len(file.Characters) == 0 {
		return nil, fmt.Errorf("character catalogue is empty")
	}

	cat := &Catalogue{
		defaultLanguage: file.DefaultLanguage,
		order:           make([]*Character, 0, len(file.Characters)),
		byID:            make(map[string]*Character, len(file.Characters)),
	}
	for i, ch := range file.Characters {
		if ch == nil || ch.ID == "" {
			return nil, fmt.Errorf("character #%d has no id", i)
		}
		if _, dup := cat.byID[ch.ID]; dup {
			return nil, fmt.Errorf("duplicate character id %q", ch.ID)
		}
		if ch.Name == "" {
			return nil, fmt.Errorf("character %q has no name", ch.ID)
		}
		if len(ch.Responses) == 0 {
			return nil, fmt.Errorf("character %q has no canned responses", ch.ID)
		}
		for lang, responses := range ch.Responses {
			if len(responses) == 0 {
				return nil, fmt.Errorf("character %q has an empty response table for %q", ch.ID, lang)
			}
		}
		ch.fallbackLanguage = file.DefaultLanguage
		cat.order = append(cat.order, ch)
		cat.byID[ch.ID] = ch
	}
	return cat, nil
}

// Get returns the character with the given id.
func (c *Catalogue) Get(id string) (*Character, error) {
	ch, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return ch, nil
}

// List returns every character in catalogue order.
func (c *Catalogue) List() []*Character {
	out := make([]*Character, len(c.order))
	copy(out, c.order)
	return out
}

// DefaultLanguage is used when a request does not name a language.
func (c *Catalogue) DefaultLanguage() string {
	return c.defaultLanguage
}

// ResponsesFor returns the canned responses for a language, falling back
// to the base language, the catalogue default and finally English.
func (ch *Character) ResponsesFor(language string) []string {
	for _, lang := range ch.languageChain(language) {
		if responses, ok := ch.Responses[lang]; ok && len(responses) > 0 {
			return responses
		}
	}
	return ch.Responses[firstKey(ch.Responses)]
}

// RandomResponse draws a canned response uniformly at random.
func (ch *Character) RandomResponse(language string) string {
	responses := ch.ResponsesFor(language)
	if len(responses) == 0 {
		return ""
	}
	return responses[rand.IntN(len(responses))]
}

// Greeting returns the opening line for a new conversation.
func (ch *Character) Greeting(language string, adult bool) string {
	if adult && len(ch.InitialMessageAdult) > 0 {
		if msg := pick(ch.InitialMessageAdult, ch.languageChain(language)); msg != "" {
			return msg
		}
	}
	return pick(ch.InitialMessage, ch.languageChain(language))
}

// LanguageName returns the human name of a language code for prompts.
func LanguageName(language string) string {
	switch language {
	case "zh-TW", "zh":
		return "Traditional Chinese"
	case "zh-CN":
		return "Simplified Chinese"
	default:
		return "English"
	}
}

func (ch *Character) languageChain(language string) []string {
	chain := make([]string, 0, 4)
	if language != "" {
		chain = append(chain, language)
		if base, _, found := strings.Cut(language, "-"); found {
			chain = append(chain, base)
		} else if language == "zh" {
			chain = append(chain, "zh-TW")
		}
	}
	return append(chain, ch.fallbackLanguage, "en")
}

func pick(values map[string]string, chain []string) string {
	for _, lang := range chain {
		if v, ok := values[lang]; ok && v != "" {
			return v
		}
	}
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return values[keys[0]]
}

func firstKey(m map[string][]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}
