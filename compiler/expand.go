package compiler

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/sensorql"
	"github.com/syssam/sensorql/graph"
	"github.com/syssam/sensorql/odata"
)

// expand resolves the $expand branches for a materialized entity page.
// Sibling branches are independent; each runs over its own compiled
// state, sequentially by default or in parallel when the engine was
// built with WithConcurrentExpand. A branch failure fails the whole
// request: no partially expanded result is ever returned.
func (e *Engine) expand(ctx context.Context, parent graph.EntityType, entities []*sensorql.Entity, items []odata.ExpandItem) error {
	if len(entities) == 0 || len(items) == 0 {
		return nil
	}
	branches := normalizeExpand(items)
	if !e.concurrentExpand || len(branches) == 1 {
		for _, item := range branches {
			vals, err := e.expandBranch(ctx, parent, entities, item)
			if err != nil {
				return err
			}
			applyBranch(entities, item.Path[0], vals)
		}
		return nil
	}
	// Branch results are collected per goroutine and applied after the
	// wait: entity maps are not written concurrently.
	results := make([]map[int]any, len(branches))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range branches {
		g.Go(func() error {
			vals, err := e.expandBranch(gctx, parent, entities, item)
			if err != nil {
				return err
			}
			results[i] = vals
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, item := range branches {
		applyBranch(entities, item.Path[0], results[i])
	}
	return nil
}

// normalizeExpand rewrites multi-step expand paths into single-step
// branches with nested expands, so Datastreams/Observations(...) and
// Datastreams($expand=Observations(...)) compile identically.
func normalizeExpand(items []odata.ExpandItem) []odata.ExpandItem {
	out := make([]odata.ExpandItem, 0, len(items))
	for _, item := range items {
		if len(item.Path) <= 1 {
			out = append(out, item)
			continue
		}
		nested := odata.ExpandItem{Path: item.Path[1:], Options: item.Options}
		out = append(out, odata.ExpandItem{
			Path:    item.Path[:1],
			Options: &odata.QueryOptions{Expand: []odata.ExpandItem{nested}},
		})
	}
	return out
}

// expandBranch runs one branch for every parent entity, returning the
// values keyed by parent index. Parents that already carry a value for
// the navigation keep it when the branch has no options of its own;
// any explicit option forces the re-query.
func (e *Engine) expandBranch(ctx context.Context, parent graph.EntityType, entities []*sensorql.Entity, item odata.ExpandItem) (map[int]any, error) {
	nav := item.Path[0]
	if _, _, err := graph.NavTarget(parent, nav); err != nil {
		return nil, err
	}
	vals := make(map[int]any, len(entities))
	for i, ent := range entities {
		if _, loaded := ent.Expanded[nav]; loaded && item.Options.IsZero() {
			continue
		}
		v, err := e.expandOne(ctx, parent, ent, nav, item.Options)
		if err != nil {
			return nil, err
		}
		if v != nil {
			vals[i] = v
		}
	}
	return vals, nil
}

// expandOne queries the navigation target of a single parent entity,
// recursing through Run so nested expands, pagination and counting
// apply to the branch exactly as to a top-level request.
func (e *Engine) expandOne(ctx context.Context, parent graph.EntityType, ent *sensorql.Entity, nav string, opts *odata.QueryOptions) (any, error) {
	path := odata.ResourcePath{
		{Kind: odata.SegmentSet, Name: parent.Set(), ID: ent.ID},
		{Kind: odata.SegmentSet, Name: nav},
	}
	resp, err := e.Run(ctx, path, opts)
	if err != nil {
		// A missing to-one related entity is a valid absence.
		if sensorql.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if resp.Collection != nil {
		return resp.Collection, nil
	}
	return resp.Entity, nil
}

// applyBranch attaches the branch values to their parent entities.
func applyBranch(entities []*sensorql.Entity, nav string, vals map[int]any) {
	for i, v := range vals {
		ent := entities[i]
		if ent.Expanded == nil {
			ent.Expanded = make(map[string]any)
		}
		ent.Expanded[nav] = v
	}
}
