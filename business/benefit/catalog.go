package benefit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"welfareBot/domain"
	"welfareBot/pkg/logger"
)

var (
	ErrBenefitNotFound  = errors.New("benefit not found")
	ErrInvalidBenefitID = errors.New("benefit id must not be blank")
)

// Catalog is the read-only benefit store, loaded once at startup.
type Catalog struct {
	benefits []domain.Benefit
	byID     map[string]domain.Benefit
	// lookup for the detail endpoint: trimmed, '#'-stripped, lower-cased ids
	byKey map[string]domain.Benefit
}

func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read benefit catalog %s: %w", path, err)
	}

	var benefits []domain.Benefit
	if err := json.Unmarshal(data, &benefits); err != nil {
		return nil, fmt.Errorf("parse benefit catalog: %w", err)
	}

	c := NewCatalog(benefits)
	logger.Info("benefit catalog loaded", "benefits", len(c.benefits))
	return c, nil
}

// NewCatalog keeps catalog order. Entries without an id are kept in the
// ordered list but are not addressable.
func NewCatalog(benefits []domain.Benefit) *Catalog {
	c := &Catalog{
		benefits: append([]domain.Benefit(nil), benefits...),
		byID:     make(map[string]domain.Benefit, len(benefits)),
		byKey:    make(map[string]domain.Benefit, len(benefits)),
	}
	for _, b := range c.benefits {
		if b.BenefitID == "" {
			continue
		}
		if _, dup := c.byID[b.BenefitID]; !dup {
			c.byID[b.BenefitID] = b
		}
		if key := normalizeKey(b.BenefitID); key != "" {
			if _, dup := c.byKey[key]; !dup {
				c.byKey[key] = b
			}
		}
	}
	return c
}

func (c *Catalog) FindByID(id string) (domain.Benefit, bool) {
	b, ok := c.byID[id]
	return b, ok
}

func (c *Catalog) All() []domain.Benefit {
	return append([]domain.Benefit(nil), c.benefits...)
}

func (c *Catalog) Len() int {
	return len(c.benefits)
}

// Detail resolves a user supplied benefit id.
func (c *Catalog) Detail(ctx context.Context, rawID string) (domain.Benefit, error) {
	if err := ctx.Err(); err != nil {
		return domain.Benefit{}, fmt.Errorf("context error: %w", err)
	}

	key := normalizeKey(rawID)
	if key == "" {
		return domain.Benefit{}, ErrInvalidBenefitID
	}

	b, ok := c.byKey[key]
	if !ok {
		return domain.Benefit{}, fmt.Errorf("%w: %s", ErrBenefitNotFound, rawID)
	}
	return b, nil
}

// Markers lists benefits that carry coordinates.
func (c *Catalog) Markers(ctx context.Context) ([]domain.Marker, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	markers := []domain.Marker{}
	for _, b := range c.benefits {
		if b.Location == nil || b.Location.Lat == nil {
			continue
		}
		markers = append(markers, domain.Marker{
			ID:    b.BenefitID,
			Title: b.Title,
			Lat:   b.Location.Lat,
			Lng:   b.Location.Lng,
		})
	}
	return markers, nil
}

func normalizeKey(raw string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(raw), "#"))
}
