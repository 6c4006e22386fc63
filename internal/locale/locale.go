// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package locale resolves the display language requested in prompts.
package locale

import (
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Fallback is used when no language can be determined.
const Fallback = "English"

// names maps locale codes to the language name put into prompts. Regional
// Chinese variants are distinguished since the script differs.
var names = map[string]string{
	"en":    "English",
	"de":    "German",
	"fr":    "French",
	"es":    "Spanish",
	"it":    "Italian",
	"ja":    "Japanese",
	"ko":    "Korean",
	"pt":    "Portuguese",
	"ru":    "Russian",
	"zh":    "Chinese",
	"zh_CN": "Simplified Chinese",
	"zh_TW": "Traditional Chinese",
	"zh_HK": "Traditional Chinese (Hong Kong)",
}

// Getenv is the environment lookup used by Detect.
type Getenv func(string) string

// Detect returns the language name for the current process locale, read
// from LC_ALL, LC_MESSAGES and LANG in that order.
func Detect() string {
	return DetectFrom(os.Getenv)
}

// DetectFrom is Detect with an explicit environment.
func DetectFrom(getenv Getenv) string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := getenv(key); v != "" {
			return Name(v)
		}
	}
	return Fallback
}

// Name returns the language name for a locale code such as "de_DE.UTF-8".
//
// Lookup order: the full code, then its base language, then the English name
// known to x/text, then the code itself. "C" and "POSIX" mean English.
func Name(code string) string {
	code = normalize(code)
	if code == "" || code == "C" || code == "POSIX" {
		return Fallback
	}

	if name, ok := names[code]; ok {
		return name
	}
	base, _, _ := strings.Cut(code, "_")
	if name, ok := names[base]; ok {
		return name
	}

	if tag, err := language.Parse(strings.ReplaceAll(code, "_", "-")); err == nil {
		lang, _ := tag.Base()
		if name := display.English.Languages().Name(lang); name != "" {
			return name
		}
	}
	return code
}

// normalize strips encoding and modifier suffixes: "de_DE.UTF-8@euro" -> "de_DE".
func normalize(code string) string {
	code = strings.TrimSpace(code)
	if i := strings.IndexAny(code, ".@"); i >= 0 {
		code = code[:i]
	}
	return strings.ReplaceAll(code, "-", "_")
}
