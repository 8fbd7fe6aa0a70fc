package crm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/lead-automation/internal/domain"
)

func TestSchemaLayouts(t *testing.T) {
	assert.Equal(t, 23, SchemaV1.Columns())
	assert.Equal(t, 26, SchemaV2.Columns())

	// The drift that motivated versioned layouts: Response moved when
	// Opens/Clicks were inserted after the send flags.
	v1Resp, ok := SchemaV1.Col(FieldResponse)
	require.True(t, ok)
	assert.Equal(t, 18, v1Resp)

	v2Resp, ok := SchemaV2.Col(FieldResponse)
	require.True(t, ok)
	assert.Equal(t, 20, v2Resp)

	_, ok = SchemaV1.Col(FieldOpens)
	assert.False(t, ok, "v1 predates engagement columns")
	_, ok = SchemaV1.Col(FieldInstantlyStatus)
	assert.False(t, ok)

	v2Status, ok := SchemaV2.Col(FieldInstantlyStatus)
	require.True(t, ok)
	assert.Equal(t, 25, v2Status)
}

func TestSchemaDecodeShortRow(t *testing.T) {
	// Stores trim trailing empty cells, so a 5-cell row under the 26-column
	// layout is routine and must decode without error.
	row := []string{"LEAD-20250101120000-abcd1234", "Acme Media", "Jane Doe", "jane@acme.com", "+1 555 0100"}
	lead := SchemaV2.Decode(row)

	assert.Equal(t, "LEAD-20250101120000-abcd1234", lead.ID)
	assert.Equal(t, "Acme Media", lead.Company)
	assert.Equal(t, "jane@acme.com", lead.Email)
	assert.Equal(t, "", lead.Website)
	assert.Equal(t, "", lead.Response)
	assert.Equal(t, "", lead.InstantlyStatus)
}

func TestSchemaDecodeEmptyRow(t *testing.T) {
	lead := SchemaV2.Decode(nil)
	assert.Equal(t, domain.Lead{}, lead)
}

func TestSchemaEncodeDecodeV2(t *testing.T) {
	lead := domain.Lead{
		ID:              "LEAD-20250101120000-abcd1234",
		Company:         "Acme Media",
		Email:           "jane@acme.com",
		EmployeeCount:   "25",
		Status:          domain.StatusContacted,
		Email1Sent:      "TRUE",
		Opens:           "3",
		Clicks:          "1",
		Response:        "Interested, call Tuesday",
		InstantlyStatus: "Active",
	}
	row := SchemaV2.Encode(lead)
	require.Len(t, row, 26)
	assert.Equal(t, lead, SchemaV2.Decode(row))
}

func TestSchemaV1DropsEngagementFields(t *testing.T) {
	// Encoding under the old layout silently drops fields that have no
	// column there; nothing shifts position.
	lead := domain.Lead{
		ID:       "LEAD-1",
		Opens:    "9",
		Response: "yes please",
	}
	row := SchemaV1.Encode(lead)
	require.Len(t, row, 23)
	assert.Equal(t, "yes please", row[18])

	decoded := SchemaV1.Decode(row)
	assert.Equal(t, "", decoded.Opens)
	assert.Equal(t, "yes please", decoded.Response)
}

func TestSchemaHeaders(t *testing.T) {
	headers := SchemaV2.Headers()
	require.Len(t, headers, 26)
	assert.Equal(t, "ID", headers[0])
	assert.Equal(t, "Opens", headers[18])
	assert.Equal(t, "Instantly Status", headers[25])
}
