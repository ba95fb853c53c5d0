package migration

import (
	"context"
	"fmt"

	"github.com/storelift/migrator/internal/batch"
	"github.com/storelift/migrator/internal/catalog"
	"github.com/storelift/migrator/internal/entities"
)

// stepSkus migrates the SKUs discovered during the product step. Every
// SKU is written inactive; the source active flag rides along as
// ActivateIfPossible so activation happens only after price and stock
// are settled on the target side. When the run requests image import,
// each settled SKU also gets its source pictures copied over.
func (p *Pipeline) stepSkus(ctx context.Context, rc Context) (Context, error) {
	if err := p.runs.SetSourceTotal(rc.Run.ID, entities.EntityKindSku, len(rc.SkuIDs)); err != nil {
		return rc, err
	}
	if len(rc.SkuIDs) == 0 || rc.Products.Len() == 0 {
		return rc, nil
	}

	skus, err := batch.ForEach(ctx, rc.SkuIDs, p.opts.Concurrency, func(ctx context.Context, id string) (catalog.Sku, error) {
		fetched, err := rc.source.Skus(ctx, []string{id})
		if err != nil {
			return catalog.Sku{}, err
		}
		if len(fetched) == 0 {
			return catalog.Sku{}, fmt.Errorf("source sku %s has no detail", id)
		}
		return fetched[0], nil
	})
	if err != nil {
		return rc, err
	}

	err = batch.Run(ctx, skus, batch.Sequential, func(ctx context.Context, src catalog.Sku) error {
		if targetID, err := p.resolved(rc, entities.EntityKindSku, src.ID); err != nil {
			return err
		} else if targetID != "" {
			rc.Skus.Put(src.ID, targetID)
			return nil
		}

		productID, ok := rc.Products.Lookup(src.ProductID)
		if !ok {
			// Product was not part of this migration; neither is its SKU.
			return nil
		}

		body := src
		body.ID = ""
		body.ProductID = productID
		if body.RefID == "" {
			body.RefID = src.ID
		}
		// Keep the SKU dark while prices and stock are still missing.
		body.IsActive = false
		body.ActivateIfPossible = src.IsActive

		existing, err := p.target.SkuByRefID(ctx, body.RefID)
		if err != nil {
			return err
		}

		var settled catalog.Sku
		if existing != nil {
			settled, err = p.target.UpdateSku(ctx, existing.ID, body)
		} else {
			settled, err = p.target.CreateSku(ctx, body)
		}
		if err != nil {
			return err
		}

		specs, err := rc.source.SkuSpecifications(ctx, src.ID)
		if err != nil {
			return err
		}
		if len(specs) > 0 {
			remapped := remapSpecifications(rc.Specifications, specs)
			if err := p.target.AssociateSkuSpecifications(ctx, settled.ID, remapped); err != nil {
				return err
			}
		}

		if rc.Run.ImportImages {
			images, err := rc.source.SkuImages(ctx, src.ID)
			if err != nil {
				return err
			}
			for _, img := range images {
				img.ID = ""
				if err := p.target.CreateSkuImage(ctx, settled.ID, img); err != nil {
					return err
				}
			}
		}

		rc.Skus.Put(src.ID, settled.ID)
		return p.record(rc, entities.EntityKindSku, src.ID, settled.ID, src.Name, body,
			map[string]string{"skuId": settled.ID})
	})
	return rc, err
}
