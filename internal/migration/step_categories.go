package migration

import (
	"context"
	"fmt"

	"github.com/storelift/migrator/internal/batch"
	"github.com/storelift/migrator/internal/catalog"
	"github.com/storelift/migrator/internal/entities"
)

// stepCategories migrates the selected category subtree. Categories
// whose name already exists on the target (case-sensitive exact match)
// reuse the existing target category instead of creating a duplicate;
// everything else is created with its parent id remapped through the
// category identifier map. Processing is sequential so parents are
// always resolved before their children.
func (p *Pipeline) stepCategories(ctx context.Context, rc Context) (Context, error) {
	flat := catalog.FlattenCategories(rc.Subtree)
	if err := p.runs.SetSourceTotal(rc.Run.ID, entities.EntityKindCategory, len(flat)); err != nil {
		return rc, err
	}
	if len(flat) == 0 {
		// No subtree selected: nothing of this kind to migrate.
		return rc, nil
	}

	// Fan out the detail fetches; the tree listing only carries names.
	details, err := batch.ForEach(ctx, flat, p.opts.Concurrency, func(ctx context.Context, c catalog.Category) (catalog.Category, error) {
		fetched, err := rc.source.Categories(ctx, []string{c.ID})
		if err != nil {
			return catalog.Category{}, err
		}
		if len(fetched) == 0 {
			return catalog.Category{}, fmt.Errorf("source category %s has no detail", c.ID)
		}
		return fetched[0], nil
	})
	if err != nil {
		return rc, err
	}

	detailByID := make(map[string]catalog.Category, len(details))
	for _, d := range details {
		detailByID[d.ID] = d
	}

	targetTree, err := p.target.CategoryTreeFlattened(ctx)
	if err != nil {
		return rc, err
	}
	targetByName := make(map[string]catalog.Category, len(targetTree))
	for _, t := range targetTree {
		targetByName[t.Name] = t
	}

	err = batch.Run(ctx, flat, batch.Sequential, func(ctx context.Context, src catalog.Category) error {
		if targetID, err := p.resolved(rc, entities.EntityKindCategory, src.ID); err != nil {
			return err
		} else if targetID != "" {
			rc.Categories.Put(src.ID, targetID)
			return nil
		}

		detail := detailByID[src.ID]

		if existing, ok := targetByName[detail.Name]; ok {
			rc.Categories.Put(src.ID, existing.ID)
			return p.record(rc, entities.EntityKindCategory, src.ID, existing.ID, detail.Name, existing, nil)
		}

		body := catalog.Category{
			Name:        detail.Name,
			Title:       detail.Title,
			Description: detail.Description,
			Keywords:    detail.Keywords,
			IsActive:    detail.IsActive,
		}
		if parentID, ok := rc.Categories.Lookup(detail.FatherCategoryID); ok {
			body.FatherCategoryID = parentID
		}

		created, err := p.target.CreateCategory(ctx, body)
		if err != nil {
			return err
		}

		rc.Categories.Put(src.ID, created.ID)
		return p.record(rc, entities.EntityKindCategory, src.ID, created.ID, detail.Name, body, nil)
	})
	return rc, err
}
