package storage

import (
	"context"

	"feeScope/internal/model"
)

// FeeReportFile writes the fee report as pretty-printed JSON.
type FeeReportFile struct {
	path string
}

func NewFeeReportFile(path string) *FeeReportFile {
	return &FeeReportFile{path: path}
}

func (f *FeeReportFile) SaveFeeReport(_ context.Context, report model.FeeReport) error {
	if report.Fees == nil {
		report.Fees = map[string]*uint32{}
	}
	if report.Details == nil {
		report.Details = []model.FactoryFee{}
	}
	if err := writeJSONAtomic(f.path, report); err != nil {
		return &PersistenceError{Sink: "fee report", Path: f.path, Err: err}
	}
	return nil
}
