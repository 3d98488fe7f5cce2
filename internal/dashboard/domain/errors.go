package dashboard

import "errors"

// ErrInvalidWindow is returned when a day's operating window is malformed.
var ErrInvalidWindow = errors.New("dashboard: invalid operating window")

// ErrChartNotFound is returned when a chart id is not registered.
var ErrChartNotFound = errors.New("dashboard: chart not found")

// ErrUnknownMode is returned for an unrecognized view mode.
var ErrUnknownMode = errors.New("dashboard: unknown view mode")

// ErrNoDrillDown is returned when drill-down is requested outside a peak-bar view.
var ErrNoDrillDown = errors.New("dashboard: view has no drill-down")
