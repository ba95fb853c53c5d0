package migration

import (
	"context"

	"github.com/storelift/migrator/internal/batch"
	"github.com/storelift/migrator/internal/catalog"
	"github.com/storelift/migrator/internal/entities"
)

// stepPrices pushes price entries for every migrated SKU. When the
// source entry carries no explicit cost price the list price doubles as
// the base price, so the target never ends up with a priceless SKU.
func (p *Pipeline) stepPrices(ctx context.Context, rc Context) (Context, error) {
	if !rc.Run.ImportPrices || rc.Skus.Len() == 0 {
		if err := p.runs.SetSourceTotal(rc.Run.ID, entities.EntityKindPrice, 0); err != nil {
			return rc, err
		}
		return rc, nil
	}

	prices, err := rc.source.Prices(ctx, rc.Skus.SourceIDs())
	if err != nil {
		return rc, err
	}
	if err := p.runs.SetSourceTotal(rc.Run.ID, entities.EntityKindPrice, len(prices)); err != nil {
		return rc, err
	}

	err = batch.Run(ctx, prices, batch.Sequential, func(ctx context.Context, src catalog.Price) error {
		if targetID, err := p.resolved(rc, entities.EntityKindPrice, src.SkuID); err != nil {
			return err
		} else if targetID != "" {
			return nil
		}

		targetSkuID, ok := rc.Skus.Lookup(src.SkuID)
		if !ok {
			return nil
		}

		body := catalog.PriceWrite{ListPrice: src.ListPrice, BasePrice: src.CostPrice}
		if body.BasePrice == nil {
			body.BasePrice = src.ListPrice
		}

		if err := p.target.CreatePrice(ctx, targetSkuID, body); err != nil {
			return err
		}
		return p.record(rc, entities.EntityKindPrice, src.SkuID, targetSkuID, "", body,
			map[string]string{"skuId": targetSkuID})
	})
	return rc, err
}
