// pkg/scanners/idor/endpoint.go
package idor

import (
	"fmt"
	"strings"
)

// BodyParamPrefix marks a parameter as a JSON body field path
const BodyParamPrefix = "body."

// InferLocation routes a parameter name from an endpoint descriptor
func InferLocation(paramName, endpointPath string) ParameterLocation {
	if strings.HasPrefix(paramName, BodyParamPrefix) {
		return LocationBody
	}
	if strings.Contains(endpointPath, "{"+paramName+"}") {
		return LocationPath
	}
	return LocationQuery
}

// BodyFieldPath strips the body prefix: "body.owner.id" -> "owner.id"
func BodyFieldPath(paramName string) string {
	return strings.TrimPrefix(paramName, BodyParamPrefix)
}

// classificationName is the token the classifier sees. Body field paths are
// reduced to their leaf key so "body.owner.userId" classifies as "userId".
func classificationName(paramName string, location ParameterLocation) string {
	if location != LocationBody {
		return paramName
	}
	field := BodyFieldPath(paramName)
	if i := strings.LastIndex(field, "."); i >= 0 && i < len(field)-1 {
		return field[i+1:]
	}
	return field
}

// AnalyzeEndpoint classifies every parameter of ep and returns them ordered
// by descending risk. Parameter names are reported exactly as given.
func AnalyzeEndpoint(ep Endpoint) []DetectedParameter {
	detected := make([]DetectedParameter, 0, len(ep.Params))
	method := string(ep.Method)

	for _, name := range ep.Params {
		location := InferLocation(name, ep.Path)
		// Descriptors carry no optionality information
		p := AnalyzeParameter(classificationName(name, location), ep.Path, method, location, true)
		p.Name = name
		detected = append(detected, p)
	}

	return PrioritizeParameters(detected)
}

// HighRiskParams returns the endpoint parameters scoring at least minRiskScore
func HighRiskParams(ep Endpoint, minRiskScore int) []DetectedParameter {
	return FilterHighRisk(AnalyzeEndpoint(ep), minRiskScore)
}

// ParameterSummary renders the top limit parameters of an endpoint for humans
func ParameterSummary(ep Endpoint, limit int) string {
	params := AnalyzeEndpoint(ep)
	if len(params) == 0 {
		return fmt.Sprintf("%s %s - No parameters detected", ep.Method, ep.Path)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s - %d parameter(s):\n", ep.Method, ep.Path, len(params))
	for i, p := range params {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Fprintf(&b, "  - %s (risk: %d, type: %s, confidence: %s)\n", p.Name, p.RiskScore, p.Type, p.Confidence)
	}
	return b.String()
}
