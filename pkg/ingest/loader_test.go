package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daycarealert/daycarealert-go/pkg/config"
	"github.com/daycarealert/daycarealert-go/pkg/logging"
	"github.com/daycarealert/daycarealert-go/pkg/models"
	"github.com/daycarealert/daycarealert-go/pkg/storage"
)

const (
	operationsJSON = `[{
		"operation_id": "op-1",
		"operation_number": "123456-7",
		"operation_name": "Sunshine Learning Center",
		"operation_type": "Licensed Center",
		"city": "Austin",
		"county": "Travis",
		"zip": "78701",
		"licensed_to_serve_ages": "Infant, Toddler, Pre-Kindergarten",
		"total_capacity": "60",
		"issuance_date": "2019-03-01T00:00:00.000",
		"programs_provided": "Meals Provided, Transportation to/from School",
		"operation_status": "Y",
		"temporarily_closed": "NO",
		"adverse_action": "N",
		"total_inspections": "9"
	}]`

	violationsJSON = `[{
		"non_compliance_id": "nc-1",
		"operation_id": "op-1",
		"standard_number_description": "Child left unsupervised",
		"standard_risk_level": "High",
		"narrative": "A child was found outside without a caregiver.",
		"activity_date": "2025-11-02T00:00:00.000",
		"corrected_at_inspection": "Yes"
	}]`
)

func newTestLoader(t *testing.T, handler http.HandlerFunc) (*Loader, storage.Store) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.IngestConfig{
		BaseURL:              server.URL,
		OperationsDataset:    "ops",
		NonComplianceDataset: "ncs",
		PageSize:             100,
	}
	return NewLoader(cfg, store, 5*time.Second, logging.New()), store
}

func TestImportOperations(t *testing.T) {
	loader, store := newTestLoader(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.URL.Path, "/ops"))
		if r.URL.Query().Get("$offset") != "0" {
			fmt.Fprint(w, "[]")
			return
		}
		fmt.Fprint(w, operationsJSON)
	})

	count, err := loader.ImportOperations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	f, err := store.GetFacility(context.Background(), "op-1")
	require.NoError(t, err)
	assert.Equal(t, "Sunshine Learning Center", f.Name)
	assert.Equal(t, "Travis", f.County)
	assert.True(t, f.Infant)
	assert.True(t, f.Toddler)
	assert.True(t, f.Preschool)
	assert.False(t, f.SchoolAge)
	assert.True(t, f.Meals)
	assert.True(t, f.Transportation)
	assert.False(t, f.NightCare)
	assert.Equal(t, 60, f.TotalCapacity)
	assert.Equal(t, 9, f.TotalInspections)
	assert.Equal(t, models.FacilityStatusActive, f.Status)
	assert.False(t, f.TemporarilyClosed)
	assert.False(t, f.AdverseAction)
	require.NotNil(t, f.IssuanceDate)
	assert.Greater(t, f.YearsInOperation, 5.0)
}

func TestImportViolations(t *testing.T) {
	loader, store := newTestLoader(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/ops") {
			if r.URL.Query().Get("$offset") == "0" {
				fmt.Fprint(w, operationsJSON)
			} else {
				fmt.Fprint(w, "[]")
			}
			return
		}
		if r.URL.Query().Get("$offset") == "0" {
			fmt.Fprint(w, violationsJSON)
		} else {
			fmt.Fprint(w, "[]")
		}
	})
	ctx := context.Background()

	_, err := loader.ImportOperations(ctx)
	require.NoError(t, err)

	count, err := loader.ImportViolations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	violations, err := store.ListViolations(ctx, "op-1")
	require.NoError(t, err)
	require.Len(t, violations, 1)

	v := violations[0]
	assert.Equal(t, "nc-1", v.ID)
	assert.Equal(t, models.RiskLevelHigh, v.RiskLevel)
	require.NotNil(t, v.ActivityDate)
	// corrected-at-inspection maps the activity date onto the corrected date
	require.NotNil(t, v.CorrectedDate)
	assert.Equal(t, *v.ActivityDate, *v.CorrectedDate)
}

func TestImportPaging(t *testing.T) {
	pages := 0
	loader, _ := newTestLoader(t, func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("$offset"))
		pages++
		if offset >= 200 {
			fmt.Fprint(w, "[]")
			return
		}
		// a full page of synthetic rows keeps the loader paging
		rows := make([]string, 100)
		for i := range rows {
			rows[i] = fmt.Sprintf(`{"operation_id": "op-%d", "operation_name": "F %d"}`, offset+i, offset+i)
		}
		fmt.Fprint(w, "["+strings.Join(rows, ",")+"]")
	})

	count, err := loader.ImportOperations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200, count)
	assert.Equal(t, 3, pages)
}

func TestImportServerErrorPropagates(t *testing.T) {
	loader, _ := newTestLoader(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	_, err := loader.ImportOperations(context.Background())
	assert.Error(t, err)
}

func TestImportAppTokenHeader(t *testing.T) {
	var gotToken string
	loader, _ := newTestLoader(t, func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-App-Token")
		fmt.Fprint(w, "[]")
	})
	loader.config.AppToken = "secret-token"

	_, err := loader.ImportOperations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "secret-token", gotToken)
}

func TestParseDateTolerant(t *testing.T) {
	assert.Nil(t, parseDate(""))
	assert.Nil(t, parseDate("not-a-date"))
	assert.NotNil(t, parseDate("2024-06-01T00:00:00.000"))
	assert.NotNil(t, parseDate("2024-06-01"))
	assert.NotNil(t, parseDate("06/15/2024"))
}
