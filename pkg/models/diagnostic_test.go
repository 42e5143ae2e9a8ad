package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnosticJSONIsAPair(t *testing.T) {
	data, err := json.Marshal([]Diagnostic{{Code: "IT1", Message: "No line items (IT1)."}})
	require.NoError(t, err)
	assert.JSONEq(t, `[["IT1","No line items (IT1)."]]`, string(data))

	var back []Diagnostic
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "IT1", back[0].Code)

	var bad Diagnostic
	assert.Error(t, json.Unmarshal([]byte(`["only-one"]`), &bad))
}
