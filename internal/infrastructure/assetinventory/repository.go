// Package assetinventory implements outbound.AssetRepository as a
// read-through cache in front of the asset-management system's HTTP API.
// AETIM owns none of this data; every read falls back to the collaborator
// on a cache miss and refreshes the cache, but no write path exists.
package assetinventory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aetim/core/internal/domain/asset"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	cacheKeyPrefix = "asset:"
	cacheKeyAll    = "asset:all"
	cacheTTL       = 15 * time.Minute
)

type assetDTO struct {
	ID                string       `json:"id"`
	Hostname          string       `json:"hostname"`
	IPs               []string     `json:"ips"`
	OperatingSystem   string       `json:"operating_system"`
	Owner             string       `json:"owner"`
	SensitivityWeight float64      `json:"sensitivity_weight"`
	CriticalityWeight float64      `json:"criticality_weight"`
	Products          []productDTO `json:"products"`
}

type productDTO struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Repository is a read-through cache over the asset-management
// collaborator's inventory API.
type Repository struct {
	client  *http.Client
	baseURL string
	cache   outbound.CacheRepository
	logger  *zap.Logger
}

func NewRepository(client *http.Client, baseURL string, cache outbound.CacheRepository, logger *zap.Logger) outbound.AssetRepository {
	if client == nil {
		client = http.DefaultClient
	}
	return &Repository{client: client, baseURL: baseURL, cache: cache, logger: logger}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*asset.Asset, error) {
	key := cacheKeyPrefix + id.String()

	if cached, err := r.cache.Get(ctx, key); err == nil && cached != nil {
		var dto assetDTO
		if err := json.Unmarshal(cached, &dto); err == nil {
			return dtoToAsset(dto), nil
		}
	}

	dto, err := r.fetch(ctx, fmt.Sprintf("%s/assets/%s", r.baseURL, id))
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(dto); err == nil {
		if err := r.cache.Set(ctx, key, raw, cacheTTL); err != nil {
			r.logger.Warn("asset cache write failed", zap.String("asset_id", id.String()), zap.Error(err))
		}
	}

	return dtoToAsset(dto), nil
}

func (r *Repository) FindAll(ctx context.Context) ([]*asset.Asset, error) {
	if cached, err := r.cache.Get(ctx, cacheKeyAll); err == nil && cached != nil {
		var dtos []assetDTO
		if err := json.Unmarshal(cached, &dtos); err == nil {
			return dtosToAssets(dtos), nil
		}
	}

	dtos, err := r.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(dtos); err == nil {
		if err := r.cache.Set(ctx, cacheKeyAll, raw, cacheTTL); err != nil {
			r.logger.Warn("asset cache write failed", zap.String("key", cacheKeyAll), zap.Error(err))
		}
	}

	return dtosToAssets(dtos), nil
}

func (r *Repository) fetch(ctx context.Context, url string) (assetDTO, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return assetDTO{}, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return assetDTO{}, fmt.Errorf("asset inventory: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return assetDTO{}, fmt.Errorf("asset inventory: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return assetDTO{}, fmt.Errorf("asset inventory: reading response body: %w", err)
	}

	var dto assetDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return assetDTO{}, fmt.Errorf("asset inventory: decoding response: %w", err)
	}
	return dto, nil
}

func (r *Repository) fetchAll(ctx context.Context) ([]assetDTO, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/assets", nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("asset inventory: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("asset inventory: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("asset inventory: reading response body: %w", err)
	}

	var dtos []assetDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, fmt.Errorf("asset inventory: decoding response: %w", err)
	}
	return dtos, nil
}

func dtoToAsset(dto assetDTO) *asset.Asset {
	id, err := uuid.Parse(dto.ID)
	if err != nil {
		id = uuid.Nil
	}

	products := make([]asset.Product, 0, len(dto.Products))
	for _, p := range dto.Products {
		products = append(products, asset.Product{Name: p.Name, Version: p.Version})
	}

	return &asset.Asset{
		ID:                id,
		Hostname:          dto.Hostname,
		IPs:               dto.IPs,
		OperatingSystem:   dto.OperatingSystem,
		Owner:             dto.Owner,
		SensitivityWeight: dto.SensitivityWeight,
		CriticalityWeight: dto.CriticalityWeight,
		Products:          products,
	}
}

func dtosToAssets(dtos []assetDTO) []*asset.Asset {
	out := make([]*asset.Asset, len(dtos))
	for i, dto := range dtos {
		out[i] = dtoToAsset(dto)
	}
	return out
}
