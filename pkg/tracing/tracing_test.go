package tracing_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/okian/fantasyboard/pkg/tracing"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInitWithoutEndpoint(t *testing.T) {
	Convey("Given no tracing endpoint", t, func() {
		shutdown, err := tracing.Init(context.Background(), "board-test", "")

		Convey("Then init should succeed with a no-op shutdown", func() {
			So(err, ShouldBeNil)
			So(shutdown(context.Background()), ShouldBeNil)
			So(tracing.GetTracer(), ShouldNotBeNil)
		})
	})
}

func TestSpans(t *testing.T) {
	Convey("Given an in-memory span recorder", t, func() {
		rec := tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
		tracing.UseProvider(tp, "board-test")

		Convey("When a span ends with an error", func() {
			ctx, span := tracing.StartSpan(context.Background(), "source.history", attribute.String("entity_id", "7"))
			tracing.AddSpanAttributes(ctx, attribute.Int("period", 3))
			tracing.End(span, errors.New("upstream down"))

			Convey("Then it should be recorded with error status", func() {
				ended := rec.Ended()
				So(len(ended), ShouldEqual, 1)
				So(ended[0].Name(), ShouldEqual, "source.history")
				So(ended[0].Status().Code, ShouldEqual, codes.Error)
				So(len(ended[0].Attributes()), ShouldEqual, 2)
			})
		})

		Convey("When a span ends cleanly", func() {
			_, span := tracing.StartSpan(context.Background(), "leaderboard.refresh")
			tracing.End(span, nil)

			Convey("Then its status should be unset", func() {
				So(rec.Ended()[0].Status().Code, ShouldEqual, codes.Unset)
			})
		})
	})
}
