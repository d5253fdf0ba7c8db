package rdb

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
	"go.opentelemetry.io/otel"

	"github.com/hatlonely/dbstruct/log/logger"
)

func TestObservableStore(t *testing.T) {
	Convey("测试 ObservableStore", t, func() {
		ctx := context.Background()
		inner, table := newSQLiteStore(t)
		defer inner.DB().Close()

		reg := prometheus.NewRegistry()
		metrics, err := NewObservableMetrics("test_rdb", reg)
		So(err, ShouldBeNil)

		store := NewObservableStore(inner, "test_rdb",
			WithMetrics(metrics),
			WithObservableLogger(logger.NewDiscard()),
			WithTracer(otel.Tracer("rdb.test")),
		)

		rec := newAlice(table)
		So(store.Save(ctx, table, rec), ShouldBeNil)
		So(store.InitFromID(ctx, table, NewMapRecord(table), rec.ID()), ShouldBeNil)
		So(store.InitFromID(ctx, table, NewMapRecord(table), 404), ShouldNotBeNil)
		So(store.InitFrom(ctx, table, NewMapRecord(table), 3), ShouldNotBeNil)
		n, err := store.RowsInTable(ctx, table)
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 1)
		So(store.Remove(ctx, table, rec, table.IDColumn()), ShouldBeNil)

		counter := metrics.operationCounter
		So(testutil.ToFloat64(counter.WithLabelValues("Save", "person", "success")), ShouldEqual, 1)
		So(testutil.ToFloat64(counter.WithLabelValues("InitFromID", "person", "success")), ShouldEqual, 1)
		So(testutil.ToFloat64(counter.WithLabelValues("InitFromID", "person", "not_found")), ShouldEqual, 1)
		So(testutil.ToFloat64(counter.WithLabelValues("InitFrom", "person", "error")), ShouldEqual, 1)
		So(testutil.ToFloat64(counter.WithLabelValues("RowsInTable", "person", "success")), ShouldEqual, 1)
		So(testutil.ToFloat64(counter.WithLabelValues("Remove", "person", "success")), ShouldEqual, 1)
		So(testutil.CollectAndCount(metrics.operationDuration), ShouldEqual, 5)

		Convey("重复注册复用已有指标", func() {
			again, err := NewObservableMetrics("test_rdb", reg)
			So(err, ShouldBeNil)
			So(again.operationCounter, ShouldEqual, metrics.operationCounter)
		})
	})

	Convey("测试通过配置创建", t, func() {
		_, err := NewObservableStoreWithOptions(nil)
		So(err, ShouldNotBeNil)
		_, err = NewObservableStoreWithOptions(&ObservableStoreOptions{})
		So(err, ShouldNotBeNil)
	})
}
