package conn

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hatlonely/rdbx/dialect"
	"github.com/hatlonely/rdbx/log"
	"github.com/hatlonely/rdbx/log/logger"
	"github.com/hatlonely/rdbx/value"
)

type ObservableOptions struct {
	// Logger 为空时使用默认日志器
	Logger *logger.SLogOptions `cfg:"logger"`

	EnableMetrics bool `cfg:"enableMetrics" def:"true"`
	EnableLogging bool `cfg:"enableLogging" def:"true"`
	EnableTracing bool `cfg:"enableTracing" def:"false"`

	// Name 指标名前缀、日志 component 字段与 span 的 component 属性
	Name string `cfg:"name" def:"rdbx"`

	// Registerer 为空时注册到 prometheus 默认 registry
	Registerer prometheus.Registerer `cfg:"-"`
}

// ObservableMetrics 连接操作指标
type ObservableMetrics struct {
	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	activeOperations  *prometheus.GaugeVec
	rowsHistogram     *prometheus.HistogramVec
}

// NewObservableMetrics 创建并注册指标，同名指标已注册时复用已有的
func NewObservableMetrics(name string, registerer prometheus.Registerer) (*ObservableMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	operationCounter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name + "_operations_total",
		Help: "Total number of sql operations",
	}, []string{"operation", "status"})
	operationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name + "_operation_duration_seconds",
		Help:    "Duration of sql operations in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
	}, []string{"operation"})
	activeOperations := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: name + "_active_operations",
		Help: "Number of active sql operations",
	}, []string{"operation"})
	rowsHistogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name + "_rows",
		Help:    "Rows returned by queries or parameter sets in batches",
		Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
	}, []string{"operation"})

	var err error
	m := &ObservableMetrics{}
	if m.operationCounter, err = register(registerer, operationCounter); err != nil {
		return nil, err
	}
	if m.operationDuration, err = register(registerer, operationDuration); err != nil {
		return nil, err
	}
	if m.activeOperations, err = register(registerer, activeOperations); err != nil {
		return nil, err
	}
	if m.rowsHistogram, err = register(registerer, rowsHistogram); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](registerer prometheus.Registerer, c C) (C, error) {
	if err := registerer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, errors.Wrap(err, "register metric failed")
	}
	return c, nil
}

// Observable 为任意 Conn 添加指标、日志与追踪
type Observable[V any] struct {
	conn Conn[V]
	obs  *observer
}

type observer struct {
	logger  logger.Logger
	metrics *ObservableMetrics
	tracer  trace.Tracer
	name    string
}

func NewObservableWithOptions[V any](c Conn[V], options *ObservableOptions) (*Observable[V], error) {
	if c == nil {
		return nil, errors.New("conn is nil")
	}
	if options == nil {
		options = &ObservableOptions{Name: "rdbx", EnableMetrics: true, EnableLogging: true}
	}

	obs := &observer{name: options.Name}
	if options.EnableLogging {
		l, err := log.NewLoggerWithOptions(options.Logger)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to create logger")
		}
		obs.logger = l.WithGroup("conn")
	}
	if options.EnableMetrics {
		metrics, err := NewObservableMetrics(options.Name, options.Registerer)
		if err != nil {
			return nil, err
		}
		obs.metrics = metrics
	}
	if options.EnableTracing {
		obs.tracer = otel.Tracer(fmt.Sprintf("conn.%s", options.Name))
	}

	return &Observable[V]{conn: c, obs: obs}, nil
}

// observe 统一的操作观测逻辑，rows 为 -1 时不记录行数
func (o *observer) observe(ctx context.Context, operation string, stmt string, fn func(context.Context) (int, error)) error {
	start := time.Now()

	var span trace.Span
	if o.tracer != nil {
		ctx, span = o.tracer.Start(ctx, fmt.Sprintf("conn.%s", operation),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("component", o.name),
				attribute.String("operation", operation),
				attribute.String("db.statement", stmt),
			),
		)
		defer span.End()
	}

	if o.metrics != nil {
		o.metrics.activeOperations.WithLabelValues(operation).Inc()
		defer o.metrics.activeOperations.WithLabelValues(operation).Dec()
	}

	rows, err := fn(ctx)
	duration := time.Since(start)

	if span != nil {
		span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
		if rows >= 0 {
			span.SetAttributes(attribute.Int("rows", rows))
		}
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if o.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		o.metrics.operationCounter.WithLabelValues(operation, status).Inc()
		o.metrics.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
		if rows >= 0 {
			o.metrics.rowsHistogram.WithLabelValues(operation).Observe(float64(rows))
		}
	}

	if o.logger != nil {
		if err != nil {
			o.logger.ErrorContext(ctx, "sql operation failed",
				"component", o.name,
				"operation", operation,
				"statement", stmt,
				"duration_ms", duration.Milliseconds(),
				"error", err.Error(),
			)
		} else {
			o.logger.DebugContext(ctx, "sql operation completed",
				"component", o.name,
				"operation", operation,
				"statement", stmt,
				"duration_ms", duration.Milliseconds(),
				"rows", rows,
			)
		}
	}

	return err
}

func (c *Observable[V]) Codec() value.Codec[V] {
	return c.conn.Codec()
}

func (c *Observable[V]) Dialect() *dialect.Dialect {
	return c.conn.Dialect()
}

func (c *Observable[V]) Exec(ctx context.Context, stmt string, params Params[V]) (int64, error) {
	return observedExec(ctx, c.obs, c.conn, stmt, params)
}

func (c *Observable[V]) Query(ctx context.Context, stmt string, params Params[V]) ([]Row[V], error) {
	return observedQuery(ctx, c.obs, c.conn, stmt, params)
}

func (c *Observable[V]) BatchExec(ctx context.Context, stmt string, params []Params[V]) error {
	return observedBatchExec(ctx, c.obs, c.conn, stmt, params)
}

func (c *Observable[V]) Begin(ctx context.Context) (Tx[V], error) {
	var tx Tx[V]
	err := c.obs.observe(ctx, "begin", "", func(ctx context.Context) (int, error) {
		var err error
		tx, err = c.conn.Begin(ctx)
		return -1, err
	})
	if err != nil {
		return nil, err
	}
	return &observableTx[V]{tx: tx, obs: c.obs, ctx: ctx}, nil
}

func (c *Observable[V]) Close() error {
	return c.conn.Close()
}

type observableTx[V any] struct {
	tx  Tx[V]
	obs *observer
	// ctx 为 Begin 的上下文，Commit 和 Rollback 的 span 与日志沿用它
	ctx context.Context
}

func (t *observableTx[V]) Codec() value.Codec[V] {
	return t.tx.Codec()
}

func (t *observableTx[V]) Dialect() *dialect.Dialect {
	return t.tx.Dialect()
}

func (t *observableTx[V]) Exec(ctx context.Context, stmt string, params Params[V]) (int64, error) {
	return observedExec(ctx, t.obs, t.tx, stmt, params)
}

func (t *observableTx[V]) Query(ctx context.Context, stmt string, params Params[V]) ([]Row[V], error) {
	return observedQuery(ctx, t.obs, t.tx, stmt, params)
}

func (t *observableTx[V]) BatchExec(ctx context.Context, stmt string, params []Params[V]) error {
	return observedBatchExec(ctx, t.obs, t.tx, stmt, params)
}

func (t *observableTx[V]) Commit() error {
	return t.obs.observe(t.ctx, "commit", "", func(context.Context) (int, error) {
		return -1, t.tx.Commit()
	})
}

func (t *observableTx[V]) Rollback() error {
	return t.obs.observe(t.ctx, "rollback", "", func(context.Context) (int, error) {
		return -1, t.tx.Rollback()
	})
}

func observedExec[V any](ctx context.Context, o *observer, ex Executor[V], stmt string, params Params[V]) (int64, error) {
	var n int64
	err := o.observe(ctx, "exec", stmt, func(ctx context.Context) (int, error) {
		var err error
		n, err = ex.Exec(ctx, stmt, params)
		return -1, err
	})
	return n, err
}

func observedQuery[V any](ctx context.Context, o *observer, ex Executor[V], stmt string, params Params[V]) ([]Row[V], error) {
	var rows []Row[V]
	err := o.observe(ctx, "query", stmt, func(ctx context.Context) (int, error) {
		var err error
		rows, err = ex.Query(ctx, stmt, params)
		return len(rows), err
	})
	return rows, err
}

func observedBatchExec[V any](ctx context.Context, o *observer, ex Executor[V], stmt string, params []Params[V]) error {
	return o.observe(ctx, "batch_exec", stmt, func(ctx context.Context) (int, error) {
		return len(params), ex.BatchExec(ctx, stmt, params)
	})
}
