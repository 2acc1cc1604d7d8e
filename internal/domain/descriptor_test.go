package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "loomworks/pkg/errors"
)

func TestLookup(t *testing.T) {
	t.Run("resolves every registered domain", func(t *testing.T) {
		for _, entityType := range EntityTypes {
			desc, err := Lookup(string(entityType))
			require.NoError(t, err)
			assert.Equal(t, entityType, desc.Type)
			assert.Equal(t, entityType, desc.New().Type())
		}
	})

	t.Run("is case-insensitive", func(t *testing.T) {
		desc, err := Lookup("rawmaterial")
		require.NoError(t, err)
		assert.Equal(t, TypeRawMaterial, desc.Type)
	})

	t.Run("unknown domain fails", func(t *testing.T) {
		_, err := Lookup("invoices")
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeBadRequest, pkgerrors.CodeOf(err))
	})
}

func TestValidate(t *testing.T) {
	t.Run("required fields", func(t *testing.T) {
		desc, _ := Describe(TypeEmployee)
		err := desc.Validate(&Employee{FullName: "No Code Or Department"})
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	})

	t.Run("project phase enum", func(t *testing.T) {
		desc, _ := Describe(TypeProject)
		assert.NoError(t, desc.Validate(&Project{Name: "Line 4", Phase: "InProgress"}))

		err := desc.Validate(&Project{Name: "Line 4", Phase: "Someday"})
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	})

	t.Run("buyer email format", func(t *testing.T) {
		desc, _ := Describe(TypeBuyer)
		assert.NoError(t, desc.Validate(&Buyer{Name: "Acme", Email: "orders@acme.example"}))

		err := desc.Validate(&Buyer{Name: "Acme", Email: "not-an-address"})
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	})

	t.Run("financial range shape", func(t *testing.T) {
		desc, _ := Describe(TypeFinancial)
		valid := &Financial{Period: "2026-01", RevenueRange: "50000-60000", ProfitRange: "10000-20000"}
		assert.NoError(t, desc.Validate(valid))

		invalid := &Financial{Period: "2026-01", RevenueRange: "a lot", ProfitRange: "10000-20000"}
		err := desc.Validate(invalid)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	})

	t.Run("negative quantities are rejected", func(t *testing.T) {
		desc, _ := Describe(TypeExport)
		err := desc.Validate(&Export{OrderRef: "EXP-1", Destination: "Sweden", Quantity: -5})
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	})
}

func TestApplyPayload(t *testing.T) {
	desc, _ := Describe(TypeEmployee)

	record := &Employee{EmployeeCode: "EMP-1", FullName: "Before", Department: "Sewing"}
	record.ID = uuid.New()
	record.ManagerID = uuid.New()
	record.Status = StatusPendingApproval
	record.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	payload := []byte(`{
		"fullName": "After",
		"id": "` + uuid.NewString() + `",
		"managerId": "` + uuid.NewString() + `",
		"submissionStatus": "Approved"
	}`)
	require.NoError(t, desc.ApplyPayload(record, payload))

	assert.Equal(t, "After", record.FullName, "domain fields are overlaid")
	assert.Equal(t, StatusPendingApproval, record.Status, "workflow fields survive the overlay")
	assert.NotEqual(t, uuid.Nil, record.ID)
}

func TestSnapshotShape(t *testing.T) {
	// Ledger snapshots must serialize the workflow fields at the top level,
	// next to the domain fields, so a snapshot reads like the entity itself.
	record := &Employee{EmployeeCode: "EMP-9", FullName: "Snap", Department: "Cutting"}
	record.ID = uuid.New()
	record.Status = StatusPendingApproval

	raw, err := json.Marshal(record)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(raw, &flat))
	assert.Equal(t, "PendingApproval", flat["submissionStatus"])
	assert.Equal(t, "EMP-9", flat["employeeId"])
	assert.NotContains(t, flat, "Meta")
}

func TestUniqueKeys(t *testing.T) {
	desc, _ := Describe(TypeEmployee)
	keys := desc.UniqueKeys(&Employee{EmployeeCode: "EMP-7"})
	require.Len(t, keys, 1)
	assert.Equal(t, UniqueKey{Field: "employeeId", Value: "EMP-7"}, keys[0])

	projectDesc, _ := Describe(TypeProject)
	assert.Empty(t, projectDesc.UniqueKeys(&Project{Name: "anything"}))
}

func TestEditable(t *testing.T) {
	assert.True(t, StatusDraft.Editable())
	assert.True(t, StatusRejected.Editable())
	assert.False(t, StatusPendingApproval.Editable())
	assert.False(t, StatusApproved.Editable())
}
