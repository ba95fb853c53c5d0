package migration

import (
	"context"

	"github.com/storelift/migrator/internal/batch"
	"github.com/storelift/migrator/internal/catalog"
	"github.com/storelift/migrator/internal/entities"
)

// stepProducts migrates brands and then the products under the selected
// categories. Products are upserted by ref id so a resumed run updates
// instead of duplicating, and each product's specifications are
// associated right after the product itself is settled.
func (p *Pipeline) stepProducts(ctx context.Context, rc Context) (Context, error) {
	if rc.Categories.Len() == 0 {
		// No categories were migrated, so no products can be attached.
		if err := p.runs.SetSourceTotal(rc.Run.ID, entities.EntityKindProduct, 0); err != nil {
			return rc, err
		}
		return rc, nil
	}

	if err := p.ensureBrands(ctx, rc); err != nil {
		return rc, err
	}

	result, err := rc.source.Products(ctx, rc.Categories.SourceIDs())
	if err != nil {
		return rc, err
	}
	if err := p.runs.SetSourceTotal(rc.Run.ID, entities.EntityKindProduct, len(result.Items)); err != nil {
		return rc, err
	}

	rc.SkuIDs = result.SkuIDs
	if err := p.runs.SetDerivedSkuIDs(rc.Run.ID, marshalJSON(result.SkuIDs)); err != nil {
		return rc, err
	}

	err = batch.Run(ctx, result.Items, batch.Sequential, func(ctx context.Context, src catalog.Product) error {
		if targetID, err := p.resolved(rc, entities.EntityKindProduct, src.ID); err != nil {
			return err
		} else if targetID != "" {
			rc.Products.Put(src.ID, targetID)
			return nil
		}

		body := src
		body.ID = ""
		if mapped, ok := rc.Categories.Lookup(src.DepartmentID); ok {
			body.DepartmentID = mapped
		}
		if mapped, ok := rc.Categories.Lookup(src.CategoryID); ok {
			body.CategoryID = mapped
		}
		if mapped, ok := rc.Brands.Lookup(src.BrandID); ok {
			body.BrandID = mapped
		}
		if body.RefID == "" {
			body.RefID = src.LinkID
		}

		// Upsert by ref id: a partially migrated catalog may already
		// hold this product from an earlier dispatch.
		existing, err := p.target.ProductByRefID(ctx, body.RefID)
		if err != nil {
			return err
		}

		var settled catalog.Product
		if existing != nil {
			settled, err = p.target.UpdateProduct(ctx, existing.ID, body)
		} else {
			settled, err = p.target.CreateProduct(ctx, body)
		}
		if err != nil {
			return err
		}

		specs, err := rc.source.ProductSpecifications(ctx, src.ID)
		if err != nil {
			return err
		}
		if len(specs) > 0 {
			remapped := remapSpecifications(rc.Specifications, specs)
			if err := p.target.AssociateProductSpecifications(ctx, settled.ID, remapped); err != nil {
				return err
			}
		}

		rc.Products.Put(src.ID, settled.ID)
		return p.record(rc, entities.EntityKindProduct, src.ID, settled.ID, src.Name, body,
			map[string]string{"productId": settled.ID})
	})
	return rc, err
}

// ensureBrands resolves every source brand on the target account,
// creating the ones the ledger has not seen yet.
func (p *Pipeline) ensureBrands(ctx context.Context, rc Context) error {
	brands, err := rc.source.Brands(ctx)
	if err != nil {
		return err
	}
	if err := p.runs.SetSourceTotal(rc.Run.ID, entities.EntityKindBrand, len(brands)); err != nil {
		return err
	}

	return batch.Run(ctx, brands, batch.Sequential, func(ctx context.Context, src catalog.Brand) error {
		if targetID, err := p.resolved(rc, entities.EntityKindBrand, src.ID); err != nil {
			return err
		} else if targetID != "" {
			rc.Brands.Put(src.ID, targetID)
			return nil
		}

		body := src
		body.ID = ""
		created, err := p.target.CreateBrand(ctx, body)
		if err != nil {
			return err
		}

		rc.Brands.Put(src.ID, created.ID)
		return p.record(rc, entities.EntityKindBrand, src.ID, created.ID, src.Name, body, nil)
	})
}

// remapSpecifications rewrites specification field ids through the
// specification identifier map when a mapping exists; unmapped fields
// pass through untouched.
func remapSpecifications(m *IdentifierMap, specs []catalog.Specification) []catalog.Specification {
	remapped := make([]catalog.Specification, len(specs))
	for i, spec := range specs {
		if mapped, ok := m.Lookup(spec.FieldID); ok {
			spec.FieldID = mapped
		}
		remapped[i] = spec
	}
	return remapped
}
