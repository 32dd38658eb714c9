package idor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyType(t *testing.T) {
	tests := []struct {
		name string
		want ParamType
	}{
		// user identity
		{"userId", ParamTypeUserID},
		{"user_id", ParamTypeUserID},
		{"USER_ID", ParamTypeUserID},
		{"user-id", ParamTypeUserID},
		{"uid", ParamTypeUserID},
		{"ownerId", ParamTypeUserID},
		{"created_by", ParamTypeUserID},
		{"authorid", ParamTypeUserID},
		{"member_id", ParamTypeUserID},

		// resource identity
		{"accountId", ParamTypeResourceID},
		{"orderId", ParamTypeResourceID},
		{"transactionId", ParamTypeResourceID},
		{"txn_id", ParamTypeResourceID},
		{"doc_id", ParamTypeResourceID},
		{"payment_id", ParamTypeResourceID},

		// uuid wins over the generic id rule
		{"user_uuid", ParamTypeUUID},
		{"deviceGuid", ParamTypeUUID},

		// generic ids
		{"id", ParamTypeResourceID},
		{"postId", ParamTypeResourceID},
		{"invoice_id", ParamTypeResourceID},
		{"id2", ParamTypeNumericID},
		{"account_num_id", ParamTypeNumericID},

		{"email", ParamTypeEmail},
		{"contact_mail", ParamTypeEmail},

		{"created_at", ParamTypeDateTime},
		{"timestamp", ParamTypeDateTime},
		{"start_time", ParamTypeDateTime},
		{"birthdate", ParamTypeDateTime},

		{"is_active", ParamTypeBoolean},
		{"has_access", ParamTypeBoolean},
		{"can_edit", ParamTypeBoolean},
		{"debug_flag", ParamTypeBoolean},

		{"limit", ParamTypeUnknown},
		{"", ParamTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyType(tt.name))
		})
	}
}

func TestClassifyTypeLongAdversarialName(t *testing.T) {
	name := strings.Repeat("_", 100000) + "x"
	assert.Equal(t, ParamTypeUnknown, ClassifyType(name))
}

func TestCalculateConfidence(t *testing.T) {
	tests := []struct {
		name     string
		param    string
		path     string
		location ParameterLocation
		want     Confidence
	}{
		{"unknown query", "limit", "/api/search", LocationQuery, ConfidenceVeryLow},
		{"email query", "email", "/api/search", LocationQuery, ConfidenceLow},
		{"datetime in path", "created_at", "/api/events/{created_at}", LocationPath, ConfidenceMedium},
		{"generic id in path", "id", "/api/users/{id}", LocationPath, ConfidenceHigh},
		{"userId in path", "userId", "/api/users/{userId}", LocationPath, ConfidenceHigh},
		{"resource match clamps to very high", "userId", "/api/user/{userId}", LocationPath, ConfidenceVeryHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateConfidence(tt.param, ClassifyType(tt.param), tt.path, tt.location)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfidenceScoreAndOrder(t *testing.T) {
	assert.Equal(t, 95, ConfidenceVeryHigh.Score())
	assert.Equal(t, 80, ConfidenceHigh.Score())
	assert.Equal(t, 55, ConfidenceMedium.Score())
	assert.Equal(t, 30, ConfidenceLow.Score())
	assert.Equal(t, 10, ConfidenceVeryLow.Score())

	assert.Greater(t, ConfidenceVeryHigh, ConfidenceHigh)
	assert.Greater(t, ConfidenceHigh, ConfidenceMedium)
	assert.Greater(t, ConfidenceMedium, ConfidenceLow)
	assert.Greater(t, ConfidenceLow, ConfidenceVeryLow)
}

func TestCalculateBOLARisk(t *testing.T) {
	tests := []struct {
		name     string
		param    string
		path     string
		method   string
		location ParameterLocation
		required bool
		want     int
	}{
		{"clamped at 100", "id", "/api/orders/{id}", "DELETE", LocationPath, true, 100},
		{"email query", "email", "/api/search", "GET", LocationQuery, false, 40},
		{"resource id in put body", "postId", "/api/posts/{id}", "PUT", LocationBody, true, 60},
		{"lowercase method", "postId", "/api/posts/{id}", "put", LocationBody, true, 60},
		{"unknown options", "limit", "/x", "OPTIONS", LocationQuery, false, 5},
		{"high risk path word", "limit", "/api/payments", "POST", LocationQuery, false, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateBOLARisk(tt.param, ClassifyType(tt.param), tt.path, tt.method, tt.location, tt.required)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculateBOLARiskBounds(t *testing.T) {
	names := []string{"id", "userId", "uuid", "id9", "email", "is_admin", "limit", ""}
	paths := []string{"", "/api/users/{id}", "/accounts/{id}/payments/{pid}/orders", "/x"}
	methods := []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "bogus"}
	locations := []ParameterLocation{LocationPath, LocationQuery, LocationBody, LocationHeader}

	for _, name := range names {
		for _, path := range paths {
			for _, method := range methods {
				for _, loc := range locations {
					for _, required := range []bool{true, false} {
						risk := CalculateBOLARisk(name, ClassifyType(name), path, method, loc, required)
						assert.GreaterOrEqual(t, risk, 0)
						assert.LessOrEqual(t, risk, 100)
					}
				}
			}
		}
	}
}

func TestAnalyzeParameter(t *testing.T) {
	t.Run("userId in GET path is very high risk", func(t *testing.T) {
		p := AnalyzeParameter("userId", "/api/users/{userId}", "GET", LocationPath, true)

		assert.Equal(t, "userId", p.Name)
		assert.Equal(t, ParamTypeUserID, p.Type)
		assert.GreaterOrEqual(t, p.RiskScore, 80)
		assert.Contains(t, []Confidence{ConfidenceVeryHigh, ConfidenceHigh}, p.Confidence)
		assert.Equal(t, "/api/users/{userId}", p.Context.EndpointPath)
		assert.Equal(t, "GET", p.Context.HTTPMethod)
		assert.Equal(t, LocationPath, p.Context.Location)
		assert.True(t, p.Context.Required)
		assert.Equal(t, []string{"users"}, p.Context.RelatedResources)
	})

	t.Run("name in POST body is low risk", func(t *testing.T) {
		p := AnalyzeParameter("name", "/api/posts", "POST", LocationBody, false)
		assert.Less(t, p.RiskScore, 35)
	})
}

func TestExtractRelatedResources(t *testing.T) {
	tests := []struct {
		name string
		path string
		want []string
	}{
		{"nested resources", "/api/users/{id}/orders/{orderId}", []string{"users", "orders"}},
		{"trailing collection", "/api/v1/users", []string{"users"}},
		{"duplicates removed", "/users/{id}/users/{other}", []string{"users"}},
		{"full url", "https://api.example.com/accounts/{accountId}", []string{"accounts"}},
		{"reserved only", "/api/public", nil},
		{"uppercase ignored", "/Users/{id}", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractRelatedResources(tt.path)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrioritizeParameters(t *testing.T) {
	params := []DetectedParameter{
		AnalyzeParameter("name", "/api/users/{id}", "POST", LocationBody, false),
		AnalyzeParameter("userId", "/api/users/{userId}", "GET", LocationPath, true),
		AnalyzeParameter("email", "/api/users", "GET", LocationQuery, false),
	}

	prioritized := PrioritizeParameters(params)
	require.Len(t, prioritized, 3)
	assert.Equal(t, "userId", prioritized[0].Name)
	for i := 1; i < len(prioritized); i++ {
		assert.GreaterOrEqual(t, prioritized[i-1].RiskScore, prioritized[i].RiskScore)
	}

	// input untouched
	assert.Equal(t, "name", params[0].Name)
}

func TestPrioritizeParametersIsStable(t *testing.T) {
	params := []DetectedParameter{
		{Name: "a", RiskScore: 50},
		{Name: "b", RiskScore: 70},
		{Name: "c", RiskScore: 50},
		{Name: "d", RiskScore: 70},
	}

	got := PrioritizeParameters(params)
	names := make([]string, 0, len(got))
	for _, p := range got {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, names)
}

func TestFilterHighRisk(t *testing.T) {
	params := []DetectedParameter{
		AnalyzeParameter("userId", "/api/users/{userId}", "GET", LocationPath, true),
		AnalyzeParameter("name", "/api/users", "POST", LocationBody, false),
	}

	highRisk := FilterHighRisk(params, 50)
	require.Len(t, highRisk, 1)
	assert.Equal(t, "userId", highRisk[0].Name)

	assert.Len(t, FilterHighRisk(params, 0), 2)
	assert.Empty(t, FilterHighRisk(params, 101))
}

func TestIsValidIDFormat(t *testing.T) {
	tests := []struct {
		value     string
		paramType ParamType
		want      bool
	}{
		{"550e8400-e29b-41d4-a716-446655440000", ParamTypeUUID, true},
		{"550E8400-E29B-41D4-A716-446655440000", ParamTypeUUID, true},
		{"550e8400e29b41d4a716446655440000", ParamTypeUUID, false},
		{"12345", ParamTypeNumericID, true},
		{"12a", ParamTypeNumericID, false},
		{"", ParamTypeNumericID, false},
		{"user@example.com", ParamTypeEmail, true},
		{"user@", ParamTypeEmail, false},
		{"user_123", ParamTypeUserID, true},
		{"order-9", ParamTypeResourceID, true},
		{"user 123", ParamTypeUserID, false},
		{"", ParamTypeResourceID, false},
		{"anything", ParamTypeUnknown, true},
		{"", ParamTypeDateTime, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.paramType)+"/"+tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidIDFormat(tt.value, tt.paramType))
		})
	}
}
