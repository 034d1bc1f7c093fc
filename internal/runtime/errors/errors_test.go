package errors

import "testing"

func TestSentinelErrors(t *testing.T) {
	// Verify sentinel errors have expected messages
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"ErrExchangeRequired", ErrExchangeRequired, "pulseflow: exchange is required"},
		{"ErrNameRequired", ErrNameRequired, "pulseflow: name is required"},
		{"ErrTitleRequired", ErrTitleRequired, "pulseflow: title is required"},
		{"ErrDescriptionRequired", ErrDescriptionRequired, "pulseflow: description is required"},
		{"ErrSchemaRequired", ErrSchemaRequired, "pulseflow: schema is required"},
		{"ErrBuildersRequired", ErrBuildersRequired, "pulseflow: message, routing key, and CC builders are required"},
		{"ErrUnknownEntry", ErrUnknownEntry, "pulseflow: no declaration with that name"},
		{"ErrPublisherClosed", ErrPublisherClosed, "pulseflow: publisher is closed"},
		{"ErrConnectionClosed", ErrConnectionClosed, "pulseflow: connection is closed"},
		{"ErrSnapshotRequired", ErrSnapshotRequired, "pulseflow: registry snapshot is required"},
		{"ErrStoreRequired", ErrStoreRequired, "pulseflow: reference store is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}
