package main

import (
	"embed"
	"regexp"
	"strings"
)

//go:embed words/*.txt
var wordFiles embed.FS

var (
	nameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9äöüß]`)
	wordSanitizer = regexp.MustCompile(`[^a-zA-Z0-9 '"äöüß]`)
)

// lookupWordlist returns a fresh copy of the named built-in list.
// Anything other than "advanced" gets the simple list.
func lookupWordlist(name string) []string {
	file := "words/simple.txt"
	if name == "advanced" {
		file = "words/advanced.txt"
	}

	data, err := wordFiles.ReadFile(file)
	if err != nil {
		// The lists are embedded at build time; a missing file cannot
		// happen outside a broken build.
		panic("missing embedded wordlist: " + file)
	}

	words := make([]string, 0, 64)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			words = append(words, line)
		}
	}
	return words
}

// parseCustomWords splits a comma-separated client-supplied list,
// trimming and sanitizing each entry and dropping any left empty.
func parseCustomWords(raw string) []string {
	var words []string
	for _, w := range strings.Split(raw, ",") {
		w = wordSanitizer.ReplaceAllString(strings.TrimSpace(w), "")
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

func sanitizeName(name string) string {
	return nameSanitizer.ReplaceAllString(name, "")
}
