package metrics

import "testing"

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordSnapshotApplied(4, 2)
	RecordDecodeFailure()
	RecordReconnect()
	RecordInsert(true)
	RecordInsert(false)
	RecordTelemetryReading("accepted")
	RecordTelemetryReading("ignored")
}
