// pkg/scanners/idor/softfail.go
package idor

import (
	"fmt"
	"strings"
	"unicode"
)

// softFailKeywords flag a success status whose body still reads like a rejection
var softFailKeywords = []string{
	"error",
	"not allowed",
	"denied",
	"forbidden",
	"unauthorized",
	"permission",
	"access denied",
	"not authorized",
	"invalid",
	"failed",
	"rejected",
	"not permitted",
}

const (
	binaryRatioThreshold  = 0.3
	unstructuredMinLength = 50
)

// AnalyzeSoftFail annotates response bodies that deserve a second look:
// denial language behind a success status, binary payloads and large
// unstructured text. It never changes a verdict.
func AnalyzeSoftFail(body string) (string, bool) {
	lower := strings.ToLower(body)
	for _, keyword := range softFailKeywords {
		if strings.Contains(lower, keyword) {
			return fmt.Sprintf("Soft fail: '%s'", keyword), true
		}
	}

	if isLikelyBinary(body) {
		return "Binary or non-text response", true
	}

	if body != "" && len(body) > unstructuredMinLength && !isStructuredBody(body) {
		return "Possible file or non-JSON response", true
	}

	return "", false
}

func isLikelyBinary(body string) bool {
	if strings.ContainsRune(body, 0) {
		return true
	}
	if body == "" {
		return false
	}

	nonPrintable := 0
	for _, r := range body {
		if r > unicode.MaxASCII || (unicode.IsControl(r) && !unicode.IsSpace(r)) {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(len(body)) > binaryRatioThreshold
}

// isStructuredBody reports whether a body looks like JSON, XML or HTML
func isStructuredBody(body string) bool {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return true
	}
	switch trimmed[0] {
	case '{', '[':
		return true
	case '<':
		return strings.HasSuffix(trimmed, ">")
	}
	return false
}
