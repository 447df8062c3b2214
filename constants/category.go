package constants

import (
	"strings"
)

type Stream string

const (
	Science     Stream = "Science"
	Commerce    Stream = "Commerce"
	Arts        Stream = "Arts"
	Engineering Stream = "Engineering"
	Medical     Stream = "Medical"
	Law         Stream = "Law"
	Vocational  Stream = "Vocational"
)

var allStreams = []Stream{
	Science,
	Commerce,
	Arts,
	Engineering,
	Medical,
	Law,
	Vocational,
}

func StreamsAsStringSlice() []string {
	result := make([]string, len(allStreams))
	for i, s := range allStreams {
		result[i] = string(s)
	}
	return result
}

// CanonicalStream maps free-form stream input onto a known stream.
// Unknown input is returned trimmed with ok=false so callers can still use it.
func CanonicalStream(input string) (Stream, bool) {
	normalized := strings.ToLower(strings.Join(strings.Fields(input), " "))
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]Stream{
		"pcm":         Engineering,
		"pcb":         Medical,
		"non-medical": Engineering,
		"non medical": Engineering,
		"btech":       Engineering,
		"b.tech":      Engineering,
		"mbbs":        Medical,
		"humanities":  Arts,
		"commerce":    Commerce,
		"business":    Commerce,
		"iti":         Vocational,
		"diploma":     Vocational,
	}
	if s, ok := synonyms[normalized]; ok {
		return s, true
	}

	for _, s := range allStreams {
		if normalized == strings.ToLower(string(s)) {
			return s, true
		}
	}
	return Stream(strings.TrimSpace(input)), false
}
