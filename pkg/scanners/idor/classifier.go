// pkg/scanners/idor/classifier.go
package idor

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Parameter classification and BOLA risk scoring.
//
// Classification is static: only the parameter name, the endpoint path, the
// method and the parameter location are inspected. All patterns are RE2, so
// matching time stays linear in the length of attacker-supplied names.

// classificationRule maps a name predicate to a ParamType. Rules are
// evaluated top to bottom and the first match wins.
type classificationRule struct {
	name    string
	matches func(name, lower string) bool
	result  ParamType
}

var (
	userIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(user[_-]?id|uid)$`),
		regexp.MustCompile(`(?i)^owner[_-]?id$`),
		regexp.MustCompile(`(?i)^created[_-]?by$`),
		regexp.MustCompile(`(?i)^author[_-]?id$`),
		regexp.MustCompile(`(?i)^member[_-]?id$`),
	}

	resourceIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^account[_-]?id$`),
		regexp.MustCompile(`(?i)^order[_-]?id$`),
		regexp.MustCompile(`(?i)^(transaction[_-]?id|txn[_-]?id)$`),
		regexp.MustCompile(`(?i)^(document[_-]?id|doc[_-]?id)$`),
		regexp.MustCompile(`(?i)^(message[_-]?id|msg[_-]?id)$`),
		regexp.MustCompile(`(?i)^project[_-]?id$`),
		regexp.MustCompile(`(?i)^post[_-]?id$`),
		regexp.MustCompile(`(?i)^comment[_-]?id$`),
		regexp.MustCompile(`(?i)^file[_-]?id$`),
		regexp.MustCompile(`(?i)^payment[_-]?id$`),
	}

	// Covers "id", "_id" suffixes and bare "id" suffixes alike
	genericIDPattern = regexp.MustCompile(`(?i)id$`)

	dateTimePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(created|updated|deleted)[_-]?at$`),
		regexp.MustCompile(`(?i)^(date|datetime|timestamp)$`),
		regexp.MustCompile(`(?i)(date|time)$`),
	}

	uuidValuePattern  = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	emailValuePattern = regexp.MustCompile(`(?i)^[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}$`)

	// A lowercase path segment directly followed by a {placeholder} or the end of the path
	resourceSegmentPattern = regexp.MustCompile(`/([a-z]+)(?:/\{[^}]+\}|$)`)
)

var reservedPathSegments = map[string]bool{
	"api": true, "v1": true, "v2": true, "v3": true, "public": true, "private": true,
}

var highRiskPathResources = []string{"user", "account", "profile", "transaction", "payment", "order"}

var classificationRules = []classificationRule{
	{
		name:    "user identity",
		matches: func(name, _ string) bool { return anyMatch(userIDPatterns, name) },
		result:  ParamTypeUserID,
	},
	{
		name:    "resource identity",
		matches: func(name, _ string) bool { return anyMatch(resourceIDPatterns, name) },
		result:  ParamTypeResourceID,
	},
	{
		name: "uuid",
		matches: func(_, lower string) bool {
			return strings.Contains(lower, "uuid") || strings.Contains(lower, "guid")
		},
		result: ParamTypeUUID,
	},
	{
		name: "numeric generic id",
		matches: func(name, lower string) bool {
			return genericIDPattern.MatchString(name) &&
				(strings.Contains(lower, "num") || strings.ContainsAny(name, "0123456789"))
		},
		result: ParamTypeNumericID,
	},
	{
		name:    "generic id",
		matches: func(name, _ string) bool { return genericIDPattern.MatchString(name) },
		result:  ParamTypeResourceID,
	},
	{
		name: "email",
		matches: func(_, lower string) bool {
			return strings.Contains(lower, "email") || strings.Contains(lower, "mail")
		},
		result: ParamTypeEmail,
	},
	{
		name:    "datetime",
		matches: func(name, _ string) bool { return anyMatch(dateTimePatterns, name) },
		result:  ParamTypeDateTime,
	},
	{
		name: "boolean flag",
		matches: func(_, lower string) bool {
			return strings.HasPrefix(lower, "is_") ||
				strings.HasPrefix(lower, "has_") ||
				strings.HasPrefix(lower, "can_") ||
				strings.HasSuffix(lower, "_flag")
		},
		result: ParamTypeBoolean,
	},
}

func anyMatch(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// AnalyzeParameter classifies a parameter and scores it for BOLA testing
func AnalyzeParameter(name, endpointPath, httpMethod string, location ParameterLocation, required bool) DetectedParameter {
	paramType := ClassifyType(name)

	return DetectedParameter{
		Name:       name,
		Type:       paramType,
		Confidence: CalculateConfidence(name, paramType, endpointPath, location),
		RiskScore:  CalculateBOLARisk(name, paramType, endpointPath, httpMethod, location, required),
		Context: ParameterContext{
			EndpointPath:     endpointPath,
			HTTPMethod:       httpMethod,
			Location:         location,
			Required:         required,
			RelatedResources: ExtractRelatedResources(endpointPath),
		},
	}
}

// ClassifyType returns the first matching ParamType from the rule table, or
// ParamTypeUnknown.
func ClassifyType(name string) ParamType {
	lower := strings.ToLower(name)
	for _, rule := range classificationRules {
		if rule.matches(name, lower) {
			return rule.result
		}
	}
	return ParamTypeUnknown
}

// CalculateConfidence scores how certain the classification is
func CalculateConfidence(name string, paramType ParamType, endpointPath string, location ParameterLocation) Confidence {
	score := 0

	switch paramType {
	case ParamTypeUserID:
		score += 40
	case ParamTypeResourceID:
		score += 35
	case ParamTypeUUID, ParamTypeEmail:
		score += 30
	case ParamTypeNumericID:
		score += 25
	case ParamTypeDateTime, ParamTypeBoolean:
		score += 20
	default:
		score += 10
	}

	lower := strings.ToLower(name)
	for _, resource := range ExtractRelatedResources(endpointPath) {
		if strings.Contains(lower, strings.ToLower(resource)) {
			score += 20
			break
		}
	}

	if location == LocationPath {
		score += 25
	}

	if paramType == ParamTypeUserID || paramType == ParamTypeResourceID {
		if strings.EqualFold(name, "id") || strings.EqualFold(name, "userId") || strings.EqualFold(name, "user_id") {
			score += 20
		}
	}

	if score > 100 {
		score = 100
	}

	switch {
	case score >= 90:
		return ConfidenceVeryHigh
	case score >= 70:
		return ConfidenceHigh
	case score >= 40:
		return ConfidenceMedium
	case score >= 20:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// CalculateBOLARisk returns a score in [0,100]; higher means more likely to
// expose another user's object.
func CalculateBOLARisk(name string, paramType ParamType, endpointPath, httpMethod string, location ParameterLocation, required bool) int {
	risk := 0

	switch paramType {
	case ParamTypeUserID:
		risk += 40
	case ParamTypeResourceID:
		risk += 35
	case ParamTypeUUID, ParamTypeNumericID:
		risk += 30
	case ParamTypeEmail:
		risk += 15
	default:
		risk += 5
	}

	method := strings.ToUpper(httpMethod)
	switch method {
	case "GET":
		risk += 25
	case "DELETE":
		risk += 20
	case "PUT", "PATCH":
		risk += 15
	case "POST":
		risk += 10
	}

	if location == LocationPath && (method == "GET" || method == "DELETE") {
		risk += 20
	}

	if required {
		risk += 10
	}

	lowerPath := strings.ToLower(endpointPath)
	for _, resource := range highRiskPathResources {
		if strings.Contains(lowerPath, resource) {
			risk += 15
			break
		}
	}

	if strings.EqualFold(name, "id") && location == LocationPath {
		risk += 10
	}

	if risk > 100 {
		return 100
	}
	return risk
}

// ExtractRelatedResources lists the resource words of a path, e.g.
// "/api/users/{id}/orders/{orderId}" yields ["users", "orders"].
// Reserved segments (api, v1..v3, public, private) are skipped and each word
// appears once, in first-seen order.
func ExtractRelatedResources(endpointPath string) []string {
	var resources []string
	seen := make(map[string]bool)

	for _, match := range resourceSegmentPattern.FindAllStringSubmatch(endpointPath, -1) {
		word := match[1]
		if reservedPathSegments[word] || seen[word] {
			continue
		}
		seen[word] = true
		resources = append(resources, word)
	}

	return resources
}

// PrioritizeParameters sorts by descending risk score. Equal scores keep
// their input order. The input slice is not modified.
func PrioritizeParameters(params []DetectedParameter) []DetectedParameter {
	sorted := make([]DetectedParameter, len(params))
	copy(sorted, params)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RiskScore > sorted[j].RiskScore
	})
	return sorted
}

// FilterHighRisk keeps parameters scoring at least minRiskScore
func FilterHighRisk(params []DetectedParameter, minRiskScore int) []DetectedParameter {
	var filtered []DetectedParameter
	for _, p := range params {
		if p.RiskScore >= minRiskScore {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// IsValidIDFormat reports whether value is plausible for a parameter of the given type
func IsValidIDFormat(value string, paramType ParamType) bool {
	switch paramType {
	case ParamTypeUUID:
		return uuidValuePattern.MatchString(value)
	case ParamTypeNumericID:
		if value == "" {
			return false
		}
		for i := 0; i < len(value); i++ {
			if value[i] < '0' || value[i] > '9' {
				return false
			}
		}
		return true
	case ParamTypeEmail:
		return emailValuePattern.MatchString(value)
	case ParamTypeUserID, ParamTypeResourceID:
		if value == "" {
			return false
		}
		for _, r := range value {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' {
				return false
			}
		}
		return true
	default:
		return value != ""
	}
}
