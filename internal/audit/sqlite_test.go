package audit

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLiteStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "audit-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "test.db")

	// Act
	store, err := NewSQLiteStore(dbPath)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	// Verify database file was created
	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_Save(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	record := &Record{
		CorrelationID:  "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d",
		ClientIP:       "203.0.113.10",
		ParameterCount: 24,
		AbnormalCount:  3,
		TopDisease:     "Diabetes",
		TopProbability: 90,
		RiskLevel:      "high",
		MLUsed:         false,
		Notes:          "Glucose and HbA1c both elevated",
	}

	// Act
	err := store.Save(ctx, record)

	// Assert
	require.NoError(t, err)
	assert.NotZero(t, record.ID, "ID should be assigned")
	assert.False(t, record.CreatedAt.IsZero(), "CreatedAt should be set")
	assert.False(t, record.UpdatedAt.IsZero(), "UpdatedAt should be set")
}

func TestSQLiteStore_Save_Update(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	// Save initial record
	record := &Record{
		CorrelationID:  "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d",
		ParameterCount: 12,
		AbnormalCount:  1,
		TopDisease:     "Healthy",
		TopProbability: 46,
		RiskLevel:      "low",
	}
	err := store.Save(ctx, record)
	require.NoError(t, err)
	originalID := record.ID

	// Update with the same correlation ID
	record.TopDisease = "Kidney Disease"
	record.TopProbability = 90
	record.RiskLevel = "high"
	record.Notes = "Re-evaluated with creatinine result"

	err = store.Save(ctx, record)
	require.NoError(t, err)

	// Assert - should update, not create new
	assert.Equal(t, originalID, record.ID, "Should update existing record")

	// Verify update
	retrieved, err := store.Get(ctx, "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d")
	require.NoError(t, err)
	assert.Equal(t, "Kidney Disease", retrieved.TopDisease)
	assert.Equal(t, 90, retrieved.TopProbability)
	assert.Equal(t, "Re-evaluated with creatinine result", retrieved.Notes)
}

func TestSQLiteStore_Get_NotFound(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	// Act
	retrieved, err := store.Get(ctx, "00000000-0000-0000-0000-000000000000")

	// Assert
	assert.NoError(t, err)
	assert.Nil(t, retrieved, "Should return nil for not found")
}

func TestSQLiteStore_List(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	diseases := []string{"Diabetes", "Heart Disease", "Liver Disease"}
	for i, disease := range diseases {
		record := &Record{
			CorrelationID:  "corr-" + string(rune('a'+i)),
			ParameterCount: 24,
			AbnormalCount:  i + 1,
			TopDisease:     disease,
			TopProbability: 50 + i*10,
			RiskLevel:      "moderate",
		}
		err := store.Save(ctx, record)
		require.NoError(t, err, "Failed to save record %d", i)
	}

	// Act
	list, err := store.List(ctx, 10, 0)

	// Assert
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestSQLiteStore_List_Pagination(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	// Save 5 entries
	for i := 0; i < 5; i++ {
		record := &Record{
			CorrelationID:  "corr-" + string(rune('a'+i)),
			ParameterCount: 24,
			TopDisease:     "Healthy",
			TopProbability: 90,
			RiskLevel:      "low",
		}
		err := store.Save(ctx, record)
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond) // Ensure different timestamps
	}

	// Act - get first page
	page1, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page1, 2)

	// Act - get second page
	page2, err := store.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page2, 2)

	// Act - get third page
	page3, err := store.List(ctx, 2, 4)
	require.NoError(t, err)
	assert.Len(t, page3, 1)
}

func TestSQLiteStore_Count(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		record := &Record{
			CorrelationID:  "corr-" + string(rune('a'+i)),
			ParameterCount: 24,
			TopDisease:     "Healthy",
			TopProbability: 95,
			RiskLevel:      "low",
		}
		err := store.Save(ctx, record)
		require.NoError(t, err)
	}

	// Act
	count, err := store.Count(ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	record := &Record{
		CorrelationID:  "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d",
		ParameterCount: 24,
		TopDisease:     "Diabetes",
		TopProbability: 90,
		RiskLevel:      "high",
	}
	err := store.Save(ctx, record)
	require.NoError(t, err)

	// Act
	err = store.Delete(ctx, record.ID)

	// Assert
	require.NoError(t, err)

	// Verify deletion
	retrieved, err := store.Get(ctx, "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d")
	assert.NoError(t, err)
	assert.Nil(t, retrieved)
}

func TestSQLiteStore_ExportJSON(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	record := &Record{
		CorrelationID:  "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d",
		ParameterCount: 24,
		AbnormalCount:  2,
		TopDisease:     "Heart Disease",
		TopProbability: 95,
		RiskLevel:      "high",
		Notes:          "Troponin critically elevated",
	}
	err := store.Save(ctx, record)
	require.NoError(t, err)

	// Act
	var buf bytes.Buffer
	err = store.ExportJSON(ctx, &buf)

	// Assert
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d")
	assert.Contains(t, buf.String(), "Troponin critically elevated")
	assert.Contains(t, buf.String(), `"version"`)
	assert.Contains(t, buf.String(), `"count"`)
}

func TestSQLiteStore_ImportJSON(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	jsonData := `{
		"version": "1.0",
		"exported_at": "2026-08-17T10:00:00Z",
		"count": 2,
		"records": [
			{
				"correlation_id": "corr-import-a",
				"parameter_count": 24,
				"abnormal_count": 3,
				"top_disease": "Diabetes",
				"top_probability": 90,
				"risk_level": "high",
				"ml_used": false
			},
			{
				"correlation_id": "corr-import-b",
				"parameter_count": 10,
				"abnormal_count": 0,
				"top_disease": "Healthy",
				"top_probability": 42,
				"risk_level": "low",
				"ml_used": true,
				"notes": "ML service consulted"
			}
		]
	}`

	// Act
	imported, skipped, err := store.ImportJSON(ctx, bytes.NewReader([]byte(jsonData)))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, imported)
	assert.Equal(t, 0, skipped)

	// Verify imports
	count, _ := store.Count(ctx)
	assert.Equal(t, int64(2), count)

	first, err := store.Get(ctx, "corr-import-a")
	require.NoError(t, err)
	assert.Equal(t, "Diabetes", first.TopDisease)

	second, err := store.Get(ctx, "corr-import-b")
	require.NoError(t, err)
	assert.True(t, second.MLUsed)
	assert.Equal(t, "ML service consulted", second.Notes)
}

func TestSQLiteStore_ImportJSON_SkipDuplicates(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	existing := &Record{
		CorrelationID:  "corr-import-a",
		ParameterCount: 24,
		TopDisease:     "Diabetes",
		TopProbability: 90,
		RiskLevel:      "high",
	}
	err := store.Save(ctx, existing)
	require.NoError(t, err)

	jsonData := `{
		"version": "1.0",
		"count": 2,
		"records": [
			{
				"correlation_id": "corr-import-a",
				"top_disease": "Healthy",
				"top_probability": 10,
				"risk_level": "low"
			},
			{
				"correlation_id": "corr-import-b",
				"top_disease": "Kidney Disease",
				"top_probability": 90,
				"risk_level": "high"
			}
		]
	}`

	// Act
	imported, skipped, err := store.ImportJSON(ctx, bytes.NewReader([]byte(jsonData)))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)

	// Verify existing wasn't overwritten
	first, _ := store.Get(ctx, "corr-import-a")
	assert.Equal(t, "Diabetes", first.TopDisease, "Existing should not be overwritten")
}

// Helper function to create a test store
func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "audit-test-*")
	require.NoError(t, err)

	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})

	dbPath := filepath.Join(tmpDir, "test.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	return store
}
