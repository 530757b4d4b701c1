package compiler

import (
	"context"
	"log/slog"
	"time"

	"github.com/syssam/sensorql"
	"github.com/syssam/sensorql/dialect"
	"github.com/syssam/sensorql/graph"
	"github.com/syssam/sensorql/odata"
)

// Engine compiles parsed resource paths and query options into SQL and
// orchestrates their execution. It is stateless across requests and
// safe for concurrent use.
type Engine struct {
	dialect          string
	backend          Backend
	settings         sensorql.Settings
	mat              Materializer
	idKind           graph.IDKind
	log              *slog.Logger
	concurrentExpand bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithSettings replaces the default server policy.
func WithSettings(s sensorql.Settings) Option {
	return func(e *Engine) { e.settings = s }
}

// WithIDKind sets the identifier representation of all entity tables.
func WithIDKind(k graph.IDKind) Option {
	return func(e *Engine) { e.idKind = k }
}

// WithMaterializer replaces the default row mapper.
func WithMaterializer(m Materializer) Option {
	return func(e *Engine) { e.mat = m }
}

// WithLogger sets the logger used for schema defect reports.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithConcurrentExpand executes sibling $expand branches in parallel.
func WithConcurrentExpand() Option {
	return func(e *Engine) { e.concurrentExpand = true }
}

// New builds an Engine for the given dialect and backend. The entity
// graph and the policy settings are validated once here, so resolver
// and relationship failures later in a request are genuine defects.
func New(d string, backend Backend, opts ...Option) (*Engine, error) {
	switch d {
	case dialect.Postgres, dialect.MySQL, dialect.SQLite:
	default:
		return nil, sensorql.NewSchemaDefect("unsupported dialect %q", d)
	}
	e := &Engine{
		dialect:  d,
		backend:  backend,
		settings: sensorql.DefaultSettings(),
		mat:      RowMaterializer{},
		idKind:   graph.IDInt64,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.settings.Validate(); err != nil {
		return nil, err
	}
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Response is the outcome of Run: exactly one of the two fields is set,
// matching whether the resource path addressed a single entity or a
// collection.
type Response struct {
	Entity     *sensorql.Entity
	Collection *sensorql.CollectionResult
}

// Compile builds the query for the given path and options without
// executing it.
func (e *Engine) Compile(path odata.ResourcePath, opts *odata.QueryOptions) (*Compiled, error) {
	c, err := compile(e.dialect, path, opts, e.settings)
	if err != nil {
		if sensorql.IsSchemaDefect(err) {
			e.log.Error("entity graph defect during compilation",
				slog.String("path", path.String()),
				slog.Any("error", err))
		}
		return nil, err
	}
	return c, nil
}

// Run compiles and executes the request, including counting,
// pagination and $expand orchestration.
func (e *Engine) Run(ctx context.Context, path odata.ResourcePath, opts *odata.QueryOptions) (*Response, error) {
	c, err := e.Compile(path, opts)
	if err != nil {
		return nil, err
	}
	query, args := c.Selector.Query()
	rows, err := e.execute(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if c.Single {
		return e.runSingle(ctx, c, rows)
	}
	return e.runCollection(ctx, c, rows)
}

func (e *Engine) runSingle(ctx context.Context, c *Compiled, rows []Row) (*Response, error) {
	switch len(rows) {
	case 0:
		return nil, sensorql.ErrNotFound
	case 1:
	default:
		err := sensorql.NewSchemaDefect("single-entity path for %s returned %d rows", c.Entity, len(rows))
		e.log.Error("duplicate rows for single-entity path",
			slog.String("entity", c.Entity.String()),
			slog.Any("error", err))
		return nil, err
	}
	ent, err := e.mat.Materialize(c.Entity, e.idKind, c.Plan, rows[0])
	if err != nil {
		return nil, err
	}
	if err := e.expand(ctx, c.Entity, []*sensorql.Entity{ent}, expandItems(c.Options)); err != nil {
		return nil, err
	}
	return &Response{Entity: ent}, nil
}

func (e *Engine) runCollection(ctx context.Context, c *Compiled, rows []Row) (*Response, error) {
	// The selector fetched one row past the page size; an extra row
	// proves a following page without a count query.
	more := len(rows) > c.Top
	if more {
		rows = rows[:c.Top]
	}
	entities := make([]*sensorql.Entity, 0, len(rows))
	for _, r := range rows {
		ent, err := e.mat.Materialize(c.Entity, e.idKind, c.Plan, r)
		if err != nil {
			return nil, err
		}
		entities = append(entities, ent)
	}
	res := &sensorql.CollectionResult{Entities: entities}
	if c.Options.WantsCount() {
		n, estimated, err := e.count(ctx, c)
		if err != nil {
			return nil, err
		}
		res.Count = &n
		res.CountEstimated = estimated
	}
	if more {
		link, err := sensorql.EncodeNextLink(c.Skip + c.Top)
		if err != nil {
			return nil, err
		}
		res.NextLink = link
	}
	if err := e.expand(ctx, c.Entity, entities, expandItems(c.Options)); err != nil {
		return nil, err
	}
	return &Response{Collection: res}, nil
}

// count executes the count statement of the compiled query. Under
// limit-sample counting a result above the threshold is reported as a
// lower-bound estimate.
func (e *Engine) count(ctx context.Context, c *Compiled) (int64, bool, error) {
	query, args, capped := c.CountQuery(e.settings)
	ctx, cancel := e.bound(ctx)
	defer cancel()
	start := time.Now()
	n, err := e.backend.ExecuteCount(ctx, query, args)
	e.observe(query, start)
	if err != nil {
		return 0, false, e.classify(ctx, err)
	}
	if capped && n > e.settings.EstimateThreshold {
		return n, true, nil
	}
	return n, false, nil
}

// execute runs the row query under the policy timeout, reporting
// executions that exceed the slow-query threshold.
func (e *Engine) execute(ctx context.Context, query string, args []any) ([]Row, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()
	start := time.Now()
	rows, err := e.backend.Execute(ctx, query, args)
	e.observe(query, start)
	if err != nil {
		return nil, e.classify(ctx, err)
	}
	return rows, nil
}

func (e *Engine) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.settings.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.settings.QueryTimeout)
}

// classify marks an execution that failed after the policy deadline
// expired as a timeout, whatever error form the backend surfaced.
func (e *Engine) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil && !sensorql.IsTimeout(err) {
		return sensorql.NewBackendError(err, true)
	}
	return err
}

func (e *Engine) observe(query string, start time.Time) {
	elapsed := time.Since(start)
	if e.settings.SlowQueryThreshold > 0 && elapsed >= e.settings.SlowQueryThreshold {
		e.log.Warn("slow query",
			slog.Duration("elapsed", elapsed),
			slog.String("query", query))
	}
}

func expandItems(opts *odata.QueryOptions) []odata.ExpandItem {
	if opts == nil {
		return nil
	}
	return opts.Expand
}
