// pkg/scanners/idor/types.go
package idor

import (
	"fmt"
	"strings"
)

// ParamType is the semantic class assigned to a parameter name
type ParamType string

const (
	ParamTypeUserID     ParamType = "user_id"     // Identifies a user or owner (userId, owner_id, created_by)
	ParamTypeResourceID ParamType = "resource_id" // Identifies a business object (orderId, doc_id, generic id)
	ParamTypeUUID       ParamType = "uuid"        // Name mentions uuid/guid
	ParamTypeNumericID  ParamType = "numeric_id"  // Generic id carrying a number hint (id_num, id2)
	ParamTypeEmail      ParamType = "email"
	ParamTypeDateTime   ParamType = "datetime"
	ParamTypeBoolean    ParamType = "boolean"
	ParamTypeNumber     ParamType = "number"
	ParamTypeArray      ParamType = "array"
	ParamTypeObject     ParamType = "object"
	ParamTypeString     ParamType = "string"
	ParamTypeUnknown    ParamType = "unknown"
)

// Confidence is how sure the classifier is about a ParamType.
// Values are ordered: VeryLow < Low < Medium < High < VeryHigh.
type Confidence int

const (
	ConfidenceVeryLow Confidence = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
	ConfidenceVeryHigh
)

// Score returns the representative percentage for display. It never feeds risk scoring.
func (c Confidence) Score() int {
	switch c {
	case ConfidenceVeryHigh:
		return 95
	case ConfidenceHigh:
		return 80
	case ConfidenceMedium:
		return 55
	case ConfidenceLow:
		return 30
	default:
		return 10
	}
}

func (c Confidence) String() string {
	switch c {
	case ConfidenceVeryHigh:
		return "very_high"
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceLow:
		return "low"
	default:
		return "very_low"
	}
}

// MarshalText renders the band name in JSON and YAML output
func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ParameterLocation is where a parameter travels in the request
type ParameterLocation string

const (
	LocationPath   ParameterLocation = "path"
	LocationQuery  ParameterLocation = "query"
	LocationBody   ParameterLocation = "body"
	LocationHeader ParameterLocation = "header"
)

// Method is an HTTP method accepted in endpoint descriptors
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodPatch   Method = "PATCH"
	MethodOptions Method = "OPTIONS"
	MethodHead    Method = "HEAD"
)

// ParseMethod normalizes s to a known Method
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToUpper(strings.TrimSpace(s))); m {
	case MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch, MethodOptions, MethodHead:
		return m, nil
	default:
		return "", fmt.Errorf("unsupported http method %q", s)
	}
}

// ParameterContext records where and how a parameter was observed
type ParameterContext struct {
	EndpointPath     string            `json:"endpoint_path"`
	HTTPMethod       string            `json:"http_method"`
	Location         ParameterLocation `json:"location"`
	Required         bool              `json:"required"`
	RelatedResources []string          `json:"related_resources,omitempty"` // e.g. "users", "orders"
}

// DetectedParameter is the classifier's view of one parameter.
// RiskScore is always within [0,100]; higher means a better BOLA candidate.
type DetectedParameter struct {
	Name       string           `json:"name"`
	Type       ParamType        `json:"type"`
	Confidence Confidence       `json:"confidence"`
	RiskScore  int              `json:"risk_score"`
	Context    ParameterContext `json:"context"`
}

// Endpoint is a discovered API operation handed over by a collection parser.
// Params prefixed with "body." name JSON body fields.
type Endpoint struct {
	Method      Method         `json:"method" yaml:"method"`
	Path        string         `json:"path" yaml:"path"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Params      []string       `json:"params,omitempty" yaml:"params,omitempty"`
	Body        map[string]any `json:"body,omitempty" yaml:"body,omitempty"`
}

// Verdict is the outcome of one probe
type Verdict int

const (
	VerdictUncertain Verdict = iota
	VerdictSecure
	VerdictVulnerable
)

func (v Verdict) String() string {
	switch v {
	case VerdictVulnerable:
		return "VULNERABLE"
	case VerdictSecure:
		return "SECURE"
	default:
		return "UNCERTAIN"
	}
}

func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// IdentityFieldWeight biases ownership inference in the verdict engine
type IdentityFieldWeight int

const (
	// WeightCritical fields identify the owner of the returned object
	WeightCritical IdentityFieldWeight = iota
	// WeightMetadata fields name an actor that touched the object
	WeightMetadata
)
