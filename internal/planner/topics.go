package planner

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/noah-isme/study-plan-api/internal/models"
)

var genericTopicTemplates = []string{
	"Introduction to %s",
	"Core Concepts of %s",
	"Advanced %s Principles",
	"Practice Problems for %s",
}

// Topics resolves the ordered, non-empty topic list for a subject.
// Extracted file topics replace curated ones entirely; with neither, four generic topics are synthesized.
func (c *Catalog) Topics(subject string, difficulty models.Difficulty, fileTopics []string) []string {
	if len(fileTopics) > 0 {
		return append([]string(nil), fileTopics...)
	}
	if curated, ok := c.Curated(subject, difficulty); ok {
		return curated
	}
	return GenericTopics(subject)
}

// GenericTopics wraps the title-cased subject in the fixed fallback templates.
func GenericTopics(subject string) []string {
	name := titleWords(subject)
	topics := make([]string, 0, len(genericTopicTemplates))
	for _, tpl := range genericTopicTemplates {
		topics = append(topics, strings.Replace(tpl, "%s", name, 1))
	}
	return topics
}

// titleWords upper-cases the first rune of every whitespace-separated word and keeps the rest as typed.
func titleWords(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		r, size := utf8.DecodeRuneInString(word)
		words[i] = string(unicode.ToUpper(r)) + word[size:]
	}
	return strings.Join(words, " ")
}

// fileTopicsFor looks up extracted topics by exact subject first, then case-insensitively.
// When several keys normalize to the same subject the lexically smallest key wins.
func fileTopicsFor(subject string, fileTopics map[string][]string) []string {
	if len(fileTopics) == 0 {
		return nil
	}
	if topics, ok := fileTopics[subject]; ok {
		return topics
	}
	names := make([]string, 0, len(fileTopics))
	for name := range fileTopics {
		names = append(names, name)
	}
	sort.Strings(names)

	key := normalizeSubject(subject)
	for _, name := range names {
		if normalizeSubject(name) == key {
			return fileTopics[name]
		}
	}
	return nil
}
