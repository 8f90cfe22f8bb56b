package mappingmode

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/mandi-agent/internal/llm"
	"github.com/ternarybob/mandi-agent/internal/runctx"
)

type stubOracle struct {
	response json.RawMessage
	err      error
	lastUser string
}

func (s *stubOracle) Generate(ctx context.Context, req llm.Request) (json.RawMessage, error) {
	s.lastUser = req.User
	return s.response, s.err
}

func (s *stubOracle) Close() error { return nil }

func testRunContext() *runctx.RunContext {
	return runctx.New(nil, arbor.NewLogger(), "src_test", "https://example.com")
}

func TestRun_ReturnsNilWhenNoRawFields(t *testing.T) {
	cfg, err := Run(context.Background(), &stubOracle{}, testRunContext(), nil, nil, "https://example.com", "api")
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestRun_BuildsSchemaMappingFromJSON(t *testing.T) {
	oracle := &stubOracle{response: json.RawMessage(`{
		"schema_mapping": {"commodity": "cropName", "market": "mandiName"},
		"conversions": {"modalPrice": {"multiply": 100, "comment": "kg to quintal"}},
		"confidence": 0.85,
		"unmapped_fields": ["notes"],
		"notes": "looks clean"
	}`)}

	cfg, err := Run(context.Background(), oracle, testRunContext(), []string{"commodity", "market", "notes"}, []map[string]any{{"commodity": "Wheat"}}, "https://example.com", "api")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "cropName", cfg.FieldMap["commodity"])
	assert.Equal(t, 0.85, cfg.Confidence)
	require.Contains(t, cfg.Conversions, "modalPrice")
	require.NotNil(t, cfg.Conversions["modalPrice"].Multiply)
	assert.Equal(t, 100.0, *cfg.Conversions["modalPrice"].Multiply)
	assert.Equal(t, []string{"notes"}, cfg.UnmappedFields)
}

func TestRun_TruncatesSampleDataToThree(t *testing.T) {
	oracle := &stubOracle{response: json.RawMessage(`{"schema_mapping":{},"confidence":0.5}`)}

	sample := []map[string]any{
		{"a": 1}, {"a": 2}, {"a": 3}, {"a": 4}, {"a": 5},
	}
	cfg, err := Run(context.Background(), oracle, testRunContext(), []string{"a"}, sample, "https://example.com", "api")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Contains(t, oracle.lastUser, "\"a\": 3")
	assert.NotContains(t, oracle.lastUser, "\"a\": 4")
}

func TestRun_RecordsErrorWithoutFailingOnOracleError(t *testing.T) {
	rc := testRunContext()
	oracle := &stubOracle{err: assert.AnError}

	cfg, err := Run(context.Background(), oracle, rc, []string{"commodity"}, nil, "https://example.com", "api")
	require.NoError(t, err)
	assert.Nil(t, cfg)
	require.Len(t, rc.Errors, 1)
}
