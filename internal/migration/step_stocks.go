package migration

import (
	"context"

	"github.com/storelift/migrator/internal/batch"
	"github.com/storelift/migrator/internal/catalog"
	"github.com/storelift/migrator/internal/entities"
)

// stepStocks writes inventory into the selected target warehouse. It
// runs last on purpose: stock must not become visible before prices and
// specifications exist.
func (p *Pipeline) stepStocks(ctx context.Context, rc Context) (Context, error) {
	if rc.Run.TargetWarehouseID == "" || rc.Skus.Len() == 0 {
		// No warehouse selected means stock migration was not requested.
		if err := p.runs.SetSourceTotal(rc.Run.ID, entities.EntityKindStock, 0); err != nil {
			return rc, err
		}
		return rc, nil
	}

	inventories, err := rc.source.Inventories(ctx, rc.Skus.SourceIDs())
	if err != nil {
		return rc, err
	}
	if err := p.runs.SetSourceTotal(rc.Run.ID, entities.EntityKindStock, len(inventories)); err != nil {
		return rc, err
	}

	err = batch.Run(ctx, inventories, batch.Sequential, func(ctx context.Context, src catalog.Inventory) error {
		if targetID, err := p.resolved(rc, entities.EntityKindStock, src.SkuID); err != nil {
			return err
		} else if targetID != "" {
			return nil
		}

		targetSkuID, ok := rc.Skus.Lookup(src.SkuID)
		if !ok {
			return nil
		}

		body := stockBody(rc.Run.StockPolicy, rc.Run.StockValue, src)
		if err := p.target.CreateInventory(ctx, targetSkuID, rc.Run.TargetWarehouseID, body); err != nil {
			return err
		}
		return p.record(rc, entities.EntityKindStock, src.SkuID, targetSkuID, "", body,
			map[string]string{"skuId": targetSkuID, "warehouseId": rc.Run.TargetWarehouseID})
	})
	return rc, err
}

// stockBody derives the target inventory from the run's stock policy:
// KEEP_SOURCE copies quantity and the unlimited flag, UNLIMITED forces
// unlimited regardless of source, TO_BE_DEFINED uses the operator
// supplied fixed quantity.
func stockBody(policy entities.StockPolicy, fixedValue int, src catalog.Inventory) catalog.InventoryWrite {
	switch policy {
	case entities.StockPolicyUnlimited:
		return catalog.InventoryWrite{UnlimitedQuantity: true}
	case entities.StockPolicyToBeDefined:
		return catalog.InventoryWrite{Quantity: fixedValue}
	default:
		return catalog.InventoryWrite{
			Quantity:          src.TotalQuantity,
			UnlimitedQuantity: src.HasUnlimitedQuantity,
		}
	}
}
