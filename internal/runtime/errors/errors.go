package errors

import sterrors "errors"

var (
	ErrExchangeRequired    = sterrors.New("pulseflow: exchange is required")
	ErrNameRequired        = sterrors.New("pulseflow: name is required")
	ErrTitleRequired       = sterrors.New("pulseflow: title is required")
	ErrDescriptionRequired = sterrors.New("pulseflow: description is required")
	ErrSchemaRequired      = sterrors.New("pulseflow: schema is required")
	ErrBuildersRequired    = sterrors.New("pulseflow: message, routing key, and CC builders are required")
	ErrUnknownEntry        = sterrors.New("pulseflow: no declaration with that name")
	ErrPublisherClosed     = sterrors.New("pulseflow: publisher is closed")
	ErrConnectionClosed    = sterrors.New("pulseflow: connection is closed")
	ErrSnapshotRequired    = sterrors.New("pulseflow: registry snapshot is required")
	ErrStoreRequired       = sterrors.New("pulseflow: reference store is required")
)
