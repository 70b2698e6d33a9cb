package service

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/shop/internal/core/domain"
)

const tracerName = "github.com/rl1809/shop/internal/core/service"

var (
	ErrDuplicateRequest = errors.New("duplicate request")
)

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// finish records err on the span and ends it.
func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, fmt.Sprintf(format, args...))
}
