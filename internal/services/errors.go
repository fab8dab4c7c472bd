package services

import (
	"context"
	"errors"

	apierrors "ibpconv/internal/errors"
	"ibpconv/internal/table"
	"ibpconv/internal/unpivot"
)

// Service errors
var (
	ErrNilTable    = errors.New("no input table")
	ErrNoLabels    = errors.New("no labels given")
	ErrTooManyRows = errors.New("preview row count out of range")
)

// classify wraps err in the AppError type its cause calls for. Context
// errors pass through so callers can tell cancellation from failure.
func classify(message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var appErr *apierrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, unpivot.ErrMissingKeyFigure),
		errors.Is(err, unpivot.ErrInvalidGranularity),
		errors.Is(err, unpivot.ErrUnknownColumn),
		errors.Is(err, unpivot.ErrDuplicateColumn),
		errors.Is(err, unpivot.ErrColumnOverlap),
		errors.Is(err, unpivot.ErrNoDateColumns),
		errors.Is(err, table.ErrUnsupportedFormat),
		errors.Is(err, ErrNilTable),
		errors.Is(err, ErrNoLabels),
		errors.Is(err, ErrTooManyRows):
		return apierrors.NewValidationError(message, err)
	case errors.Is(err, table.ErrEmptyInput),
		errors.Is(err, table.ErrRaggedRow),
		errors.Is(err, table.ErrSheetNotFound):
		return apierrors.NewParsingError(message, err)
	default:
		return apierrors.NewConversionError(message, err)
	}
}
