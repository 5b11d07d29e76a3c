package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wisefleet-dashboard/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// VINDetails 从 VIN 解码出的预填信息
type VINDetails struct {
	VIN       string `json:"vin"`
	Make      string `json:"make"`
	Model     string `json:"model"`
	ModelYear int    `json:"model_year,omitempty"`
	FuelType  string `json:"fuel_type,omitempty"`
	ErrorText string `json:"error_text,omitempty"`
}

// Draft 用解码结果预填一份草稿，其余字段取表单默认值
func (d *VINDetails) Draft() domain.VehicleDraft {
	return domain.VehicleDraft{
		Make:               d.Make,
		Model:              d.Model,
		Year:               domain.FlexInt(d.ModelYear),
		VIN:                d.VIN,
		Mileage:            domain.DefaultMileage,
		NextServiceMileage: domain.DefaultNextServiceMileage,
		FuelType:           d.FuelType,
		Status:             domain.DefaultStatus,
	}
}

// vpicResponse NHTSA vPIC DecodeVinValues 响应（flat 格式，单元素 Results）
type vpicResponse struct {
	Count   int    `json:"Count"`
	Message string `json:"Message"`
	Results []struct {
		Make            string `json:"Make"`
		Model           string `json:"Model"`
		ModelYear       string `json:"ModelYear"`
		FuelTypePrimary string `json:"FuelTypePrimary"`
		ErrorCode       string `json:"ErrorCode"`
		ErrorText       string `json:"ErrorText"`
	} `json:"Results"`
}

// VINClient NHTSA vPIC VIN 解码客户端
type VINClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewVINClient 创建 VIN 解码客户端
func NewVINClient(baseURL string, timeout time.Duration, logger *zap.Logger) *VINClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")

	return &VINClient{
		httpClient: client,
		logger:     logger,
	}
}

// Decode 解码一个 VIN，返回可用于预填表单的车辆信息
func (c *VINClient) Decode(ctx context.Context, vin string) (*VINDetails, error) {
	vin = strings.TrimSpace(vin)
	if vin == "" {
		return nil, fmt.Errorf("vin is required")
	}

	var response vpicResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("format", "json").
		SetResult(&response).
		Get("/vehicles/DecodeVinValues/" + url.PathEscape(vin))

	if err != nil {
		c.logger.Error("VIN decoder call failed",
			zap.String("vin", vin),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to call VIN decoder: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("VIN decoder returned status %d", resp.StatusCode())
	}
	if len(response.Results) == 0 {
		return nil, fmt.Errorf("VIN decoder returned no results")
	}

	result := response.Results[0]
	details := &VINDetails{
		VIN:       vin,
		Make:      titleCase(result.Make),
		Model:     result.Model,
		FuelType:  normalizeFuelType(result.FuelTypePrimary),
		ErrorText: result.ErrorText,
	}
	if year, err := strconv.Atoi(result.ModelYear); err == nil {
		details.ModelYear = year
	}

	c.logger.Info("VIN decoded",
		zap.String("vin", vin),
		zap.String("make", details.Make),
		zap.String("model", details.Model),
		zap.Int("model_year", details.ModelYear),
	)
	return details, nil
}

// normalizeFuelType 把 vPIC 的燃料描述映射到本系统的枚举，对不上则留空
func normalizeFuelType(primary string) string {
	p := strings.ToLower(primary)
	switch {
	case strings.Contains(p, "diesel"):
		return domain.FuelTypeDiesel
	case strings.Contains(p, "gasoline"):
		return domain.FuelTypeGasoline
	case strings.Contains(p, "electric"):
		return domain.FuelTypeElectric
	case strings.Contains(p, "hybrid"):
		return domain.FuelTypeHybrid
	default:
		return ""
	}
}

// titleCase vPIC 厂牌是全大写，转成首字母大写的习惯写法
func titleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
