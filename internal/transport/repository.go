package transport

import (
	"context"
	"maps"
	"net/http"

	"github.com/agentstation/bomsync/pkg/catalogs"
	"github.com/agentstation/bomsync/pkg/constants"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/parts"
)

// Repository implements catalogs.CatalogRepository and catalogs.BomRepository
// against the REST catalog service.
type Repository struct {
	client *Client
}

var (
	_ catalogs.CatalogRepository = (*Repository)(nil)
	_ catalogs.BomRepository     = (*Repository)(nil)
)

// NewRepository wraps a client.
func NewRepository(client *Client) *Repository {
	return &Repository{client: client}
}

type itemPayload struct {
	PartNumber  string            `json:"part_number"`
	Description string            `json:"description,omitempty"`
	Quantity    int               `json:"quantity,omitempty"`
	Properties  map[string]string `json:"properties,omitempty"`
}

type catalogItemResponse struct {
	PartNumber string         `json:"part_number"`
	Properties map[string]any `json:"properties"`
}

type createBomRequest struct {
	Name       string `json:"name"`
	PartNumber string `json:"part_number,omitempty"`
}

type createBomResponse struct {
	ID string `json:"id"`
}

// ListCatalogs implements catalogs.CatalogRepository.
func (r *Repository) ListCatalogs(ctx context.Context) ([]catalogs.Catalog, error) {
	var out []catalogs.Catalog
	if err := r.client.Do(ctx, http.MethodGet, r.client.endpoint("catalogs"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCatalogItem implements catalogs.CatalogRepository.
func (r *Repository) GetCatalogItem(ctx context.Context, catalogID, partNumber string) (catalogs.Entry, error) {
	var out catalogItemResponse
	err := r.client.Do(ctx, http.MethodGet, r.client.endpoint("catalogs", catalogID, "items", partNumber), nil, &out)
	if err != nil {
		if errors.IsNotFound(err) {
			return catalogs.Entry{}, errors.NewNotFoundError("catalog item", catalogID+"/"+partNumber)
		}
		return catalogs.Entry{}, err
	}
	return catalogs.Entry{
		CatalogID:  catalogID,
		PartNumber: parts.Normalize(partNumber),
		RawNode:    out.Properties,
	}, nil
}

// AddPartToCatalog implements catalogs.CatalogRepository.
func (r *Repository) AddPartToCatalog(ctx context.Context, catalogID string, line *parts.PartLine) error {
	body := itemPayload{
		PartNumber:  line.PartNumber(),
		Description: line.Description,
		Properties:  catalogs.CatalogProperties(line),
	}
	return r.client.Do(ctx, http.MethodPost, r.client.endpoint("catalogs", catalogID, "items"), body, nil)
}

// UpdateCatalogPart implements catalogs.CatalogRepository.
func (r *Repository) UpdateCatalogPart(ctx context.Context, catalogID, partNumber string, properties map[string]string) error {
	body := itemPayload{PartNumber: partNumber, Properties: properties}
	return r.client.Do(ctx, http.MethodPatch, r.client.endpoint("catalogs", catalogID, "items", partNumber), body, nil)
}

// ListBoms implements catalogs.BomRepository.
func (r *Repository) ListBoms(ctx context.Context) ([]catalogs.Bom, error) {
	var out []catalogs.Bom
	if err := r.client.Do(ctx, http.MethodGet, r.client.endpoint("boms"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetBomItems implements catalogs.BomRepository.
func (r *Repository) GetBomItems(ctx context.Context, bomID string) ([]catalogs.Item, error) {
	var out []catalogs.Item
	if err := r.client.Do(ctx, http.MethodGet, r.client.endpoint("boms", bomID, "items"), nil, &out); err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewNotFoundError("bom", bomID)
		}
		return nil, err
	}
	return out, nil
}

// CreateBom implements catalogs.BomRepository.
func (r *Repository) CreateBom(ctx context.Context, name, partNumber string) (string, error) {
	var out createBomResponse
	body := createBomRequest{Name: name, PartNumber: partNumber}
	if err := r.client.Do(ctx, http.MethodPost, r.client.endpoint("boms"), body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.NewAPIError(r.client.upstream, http.StatusBadGateway, "create bom returned no id")
	}
	return out.ID, nil
}

// AddPartToBom implements catalogs.BomRepository.
func (r *Repository) AddPartToBom(ctx context.Context, bomID string, line *parts.PartLine) error {
	props := maps.Clone(line.Properties)
	if props == nil {
		props = make(map[string]string)
	}
	maps.Copy(props, catalogs.CatalogProperties(line))
	if !line.Unsourced() {
		props[constants.PropertyTotalPrice] = line.ChosenTotalPrice.String()
	}
	body := itemPayload{
		PartNumber:  line.PartNumber(),
		Description: line.Description,
		Quantity:    line.RequestedQuantity,
		Properties:  props,
	}
	return r.client.Do(ctx, http.MethodPost, r.client.endpoint("boms", bomID, "items"), body, nil)
}
