package jsonrecords

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCount_TopLevelArray(t *testing.T) {
	assert.Equal(t, 3, Count([]byte(`[{"a":1},{"a":2},{"a":3}]`)))
}

func TestCount_WrapperKey(t *testing.T) {
	assert.Equal(t, 2, Count([]byte(`{"data":[{"a":1},{"a":2}]}`)))
	assert.Equal(t, 2, Count([]byte(`{"records":[{"a":1},{"a":2}]}`)))
}

func TestCount_NoRecords(t *testing.T) {
	assert.Equal(t, 0, Count([]byte(`{"status":"ok"}`)))
}

func TestExtract_WrapperPriority(t *testing.T) {
	// "data" precedes "records" in the ordered key set.
	records := Extract([]byte(`{"records":[{"x":1}],"data":[{"y":2}]}`))
	require := records[0]
	assert.Contains(t, require, "y")
}

func TestWrapperKey(t *testing.T) {
	assert.Equal(t, "items", WrapperKey([]byte(`{"items":[1,2]}`)))
	assert.Equal(t, "", WrapperKey([]byte(`[1,2]`)))
}
