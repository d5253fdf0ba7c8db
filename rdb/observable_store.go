package rdb

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

	"github.com/hatlonely/dbstruct/cfg"
	"github.com/hatlonely/dbstruct/log"
	"github.com/hatlonely/dbstruct/log/logger"
	"github.com/hatlonely/dbstruct/ref"
	"github.com/hatlonely/dbstruct/schema"
)

type ObservableStoreOptions struct {
	// Store 被包装的 Store
	Store  *ref.TypeOptions `cfg:"store" validate:"required"`
	Logger *ref.TypeOptions `cfg:"logger"`

	DisableMetrics bool `cfg:"disableMetrics"`
	DisableLogging bool `cfg:"disableLogging"`
	EnableTracing  bool `cfg:"enableTracing"`

	// Name 指标名前缀，同时作为日志和 span 的 component
	Name string `cfg:"name" def:"rdb"`
}

// ObservableMetrics 按操作和表统计
type ObservableMetrics struct {
	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// NewObservableMetrics 注册到 reg，同名指标已注册时复用已有的
func NewObservableMetrics(name string, reg prometheus.Registerer) (*ObservableMetrics, error) {
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: name + "_operations_total",
			Help: "Total number of record operations",
		},
		[]string{"operation", "table", "status"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    name + "_operation_duration_seconds",
			Help:    "Duration of record operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"operation", "table"},
	)

	var err error
	if counter, err = register(reg, counter); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	return &ObservableMetrics{operationCounter: counter, operationDuration: duration}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, errors.Wrap(err, "register metrics failed")
	}
	return c, nil
}

// ObservableStore 为任何 Store 添加指标、日志和追踪
type ObservableStore struct {
	store   Store
	name    string
	logger  logger.Logger
	metrics *ObservableMetrics
	tracer  trace.Tracer
}

type ObservableStoreOption func(*ObservableStore)

func WithObservableLogger(l logger.Logger) ObservableStoreOption {
	return func(s *ObservableStore) {
		s.logger = l
	}
}

func WithMetrics(m *ObservableMetrics) ObservableStoreOption {
	return func(s *ObservableStore) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) ObservableStoreOption {
	return func(s *ObservableStore) {
		s.tracer = t
	}
}

func NewObservableStore(store Store, name string, opts ...ObservableStoreOption) *ObservableStore {
	s := &ObservableStore{store: store, name: name}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewObservableStoreWithOptions 指标注册到 prometheus.DefaultRegisterer，追踪使用全局 TracerProvider
func NewObservableStoreWithOptions(options *ObservableStoreOptions) (*ObservableStore, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if err := cfg.SetDefaults(options); err != nil {
		return nil, err
	}
	if err := cfg.Validate(options); err != nil {
		return nil, err
	}

	store, err := NewStoreWithOptions(options.Store)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create underlying store")
	}

	var opts []ObservableStoreOption
	if !options.DisableLogging {
		l, err := log.NewLoggerWithOptions(options.Logger)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to create logger")
		}
		opts = append(opts, WithObservableLogger(l.WithGroup("observableStore")))
	}
	if !options.DisableMetrics {
		m, err := NewObservableMetrics(options.Name, prometheus.DefaultRegisterer)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithMetrics(m))
	}
	if options.EnableTracing {
		opts = append(opts, WithTracer(otel.Tracer(fmt.Sprintf("rdb.%s", options.Name))))
	}
	return NewObservableStore(store, options.Name, opts...), nil
}

func (s *ObservableStore) observe(ctx context.Context, operation string, t schema.Taew, fn func(context.Context) error) error {
	start := time.Now()
	table := t.TableName()

	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, fmt.Sprintf("rdb.%s", operation),
			trace.WithAttributes(
				attribute.String("component", s.name),
				attribute.String("operation", operation),
				attribute.String("table", table),
			),
		)
		defer span.End()
	}

	err := fn(ctx)
	duration := time.Since(start)

	if span != nil {
		span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if s.metrics != nil {
		status := "success"
		switch {
		case errors.Is(err, ErrRecordNotFound):
			status = "not_found"
		case err != nil:
			status = "error"
		}
		s.metrics.operationCounter.WithLabelValues(operation, table, status).Inc()
		s.metrics.operationDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	}

	if s.logger != nil {
		if err != nil && !errors.Is(err, ErrRecordNotFound) {
			s.logger.ErrorContext(ctx, "record operation failed",
				"component", s.name,
				"operation", operation,
				"table", table,
				"duration_ms", duration.Milliseconds(),
				"error", err.Error(),
			)
		} else {
			s.logger.DebugContext(ctx, "record operation completed",
				"component", s.name,
				"operation", operation,
				"table", table,
				"duration_ms", duration.Milliseconds(),
			)
		}
	}
	return err
}

func (s *ObservableStore) InitFromID(ctx context.Context, t schema.Taew, rec Record, id int64) error {
	return s.observe(ctx, "InitFromID", t, func(ctx context.Context) error {
		return s.store.InitFromID(ctx, t, rec, id)
	})
}

func (s *ObservableStore) InitFrom(ctx context.Context, t schema.Taew, rec Record, column int) error {
	return s.observe(ctx, "InitFrom", t, func(ctx context.Context) error {
		return s.store.InitFrom(ctx, t, rec, column)
	})
}

func (s *ObservableStore) Save(ctx context.Context, t schema.Taew, rec Record) error {
	return s.observe(ctx, "Save", t, func(ctx context.Context) error {
		return s.store.Save(ctx, t, rec)
	})
}

func (s *ObservableStore) Remove(ctx context.Context, t schema.Taew, rec Record, column int) error {
	return s.observe(ctx, "Remove", t, func(ctx context.Context) error {
		return s.store.Remove(ctx, t, rec, column)
	})
}

func (s *ObservableStore) RowsInTable(ctx context.Context, t schema.Taew) (int64, error) {
	var n int64
	err := s.observe(ctx, "RowsInTable", t, func(ctx context.Context) error {
		var err error
		n, err = s.store.RowsInTable(ctx, t)
		return err
	})
	return n, err
}

func (s *ObservableStore) Close() error {
	if closer, ok := s.store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
