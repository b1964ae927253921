package refdata

import (
	"errors"
	"time"

	"dlscan/internal"
)

var (
	ErrNoDataset               = errors.New("reference dataset not available")
	ErrMissingIdentifierColumn = errors.New("identifier column not found")
	ErrUnsupportedFormat       = errors.New("unsupported reference dataset format")
)

// Dataset is an immutable snapshot of the reference records. Nothing may
// modify Records after NewDataset returns.
type Dataset struct {
	IDColumn string
	Columns  []internal.Column
	Records  []internal.ReferenceRecord
	Source   string
	LoadedAt time.Time

	index *Index
}

func NewDataset(idColumn string, columns []internal.Column, records []internal.ReferenceRecord, source string) *Dataset {
	for i := range records {
		records[i].Position = i
	}
	return &Dataset{
		IDColumn: idColumn,
		Columns:  columns,
		Records:  records,
		Source:   source,
		LoadedAt: time.Now().UTC(),
		index:    BuildIndex(records),
	}
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

func (d *Dataset) Index() *Index {
	return d.index
}
