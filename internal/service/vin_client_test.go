package service_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wisefleet-dashboard/internal/domain"
	"wisefleet-dashboard/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestVINClient_DecodePrefillsDraft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/vehicles/DecodeVinValues/1FTBW2CM0HKA12345")
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"Count": 1,
			"Message": "Results returned successfully",
			"Results": [{
				"Make": "FORD",
				"Model": "Transit",
				"ModelYear": "2021",
				"FuelTypePrimary": "Diesel",
				"ErrorCode": "0",
				"ErrorText": ""
			}]
		}`)
	}))
	defer srv.Close()

	client := service.NewVINClient(srv.URL, 5*time.Second, zap.NewNop())
	details, err := client.Decode(context.Background(), "1FTBW2CM0HKA12345")
	require.NoError(t, err)

	assert.Equal(t, "1FTBW2CM0HKA12345", details.VIN)
	assert.Equal(t, "Ford", details.Make)
	assert.Equal(t, "Transit", details.Model)
	assert.Equal(t, 2021, details.ModelYear)
	assert.Equal(t, domain.FuelTypeDiesel, details.FuelType)

	draft := details.Draft()
	assert.Equal(t, "Ford", draft.Make)
	assert.Equal(t, domain.FlexInt(2021), draft.Year)
	assert.Equal(t, domain.FlexInt(domain.DefaultNextServiceMileage), draft.NextServiceMileage)
	assert.Equal(t, domain.DefaultStatus, draft.Status)
}

func TestVINClient_MapsFuelTypeVariants(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"Count": 1,
			"Results": [{
				"Make": "TESLA",
				"Model": "Model 3",
				"ModelYear": "2023",
				"FuelTypePrimary": "ELECTRIC"
			}]
		}`)
	}))
	defer srv.Close()

	client := service.NewVINClient(srv.URL, 5*time.Second, zap.NewNop())
	details, err := client.Decode(context.Background(), "5YJ3E1EA0PF000001")
	require.NoError(t, err)
	assert.Equal(t, domain.FuelTypeElectric, details.FuelType)
	assert.Equal(t, "Tesla", details.Make)
}

func TestVINClient_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"Count": 0, "Message": "no match", "Results": []}`)
	}))
	defer srv.Close()

	client := service.NewVINClient(srv.URL, 5*time.Second, zap.NewNop())
	_, err := client.Decode(context.Background(), "INVALIDVIN0000000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no results")
}

func TestVINClient_EmptyVINRejected(t *testing.T) {
	client := service.NewVINClient("http://localhost:0", time.Second, zap.NewNop())
	_, err := client.Decode(context.Background(), "   ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vin is required")
}
