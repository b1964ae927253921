package internal

import "time"

type ColumnKind string

const (
	ColumnString  ColumnKind = "string"
	ColumnInteger ColumnKind = "integer"
	ColumnFloat   ColumnKind = "float"
)

type Column struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"kind"`
}

// ReferenceRecord is one row of the reference dataset. Position is the
// zero-based row index and drives tie-breaking during matching.
type ReferenceRecord struct {
	Position   int
	Identifier string
	Attributes map[string]any
}

type MatchResult struct {
	Record ReferenceRecord
	Score  int
}

const (
	FieldAge               = "AGE"
	FieldDrivingExperience = "DRIVING_EXPERIENCE"
)

type FallbackFields map[string]string

type OutcomeKind string

const (
	OutcomeResolved          OutcomeKind = "resolved"
	OutcomeFallbackExtracted OutcomeKind = "fallback_extracted"
	OutcomeExtractionFailed  OutcomeKind = "extraction_failed"
)

// FallbackCause records which transition sent a document to the fallback path.
type FallbackCause string

const (
	CauseNone               FallbackCause = ""
	CauseNoCandidate        FallbackCause = "no_candidate"
	CauseDatasetUnavailable FallbackCause = "dataset_unavailable"
	CauseNoConfidentMatch   FallbackCause = "no_confident_match"
)

const (
	StatusDBSuccess  = "db_success"
	StatusOCRSuccess = "ocr_success"
	StatusOCRFail    = "ocr_fail"
	StatusError      = "error"
	StatusSkipped    = "skipped"
)

const ExtractionFailedMessage = "Could not extract a valid DOB or DOI from the image."

type Outcome struct {
	Kind      OutcomeKind
	Record    *ReferenceRecord
	Fields    FallbackFields
	Reason    string
	Candidate *string
	Match     *MatchResult
	Cause     FallbackCause
	IDColumn  string
}

type Response struct {
	Status     string         `json:"status"`
	ParsedData map[string]any `json:"parsed_data,omitempty"`
	Error      string         `json:"error,omitempty"`
}

func (o Outcome) Status() string {
	switch o.Kind {
	case OutcomeResolved:
		return StatusDBSuccess
	case OutcomeFallbackExtracted:
		return StatusOCRSuccess
	default:
		return StatusOCRFail
	}
}

// Response renders the outcome in the shape returned to clients. Numeric
// record attributes are rendered as integers.
func (o Outcome) Response() Response {
	switch o.Kind {
	case OutcomeResolved:
		data := map[string]any{}
		if o.Record != nil {
			for k, v := range o.Record.Attributes {
				data[k] = renderValue(v)
			}
			idColumn := o.IDColumn
			if idColumn == "" {
				idColumn = "DL_NO"
			}
			data[idColumn] = o.Record.Identifier
		}
		return Response{Status: StatusDBSuccess, ParsedData: data}
	case OutcomeFallbackExtracted:
		data := make(map[string]any, len(o.Fields))
		for k, v := range o.Fields {
			data[k] = v
		}
		return Response{Status: StatusOCRSuccess, ParsedData: data}
	default:
		return Response{Status: StatusOCRFail, Error: ExtractionFailedMessage}
	}
}

func renderValue(v any) any {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return v
	}
}

type ScanRow struct {
	ID                string
	Source            string
	Status            string
	Candidate         *string
	Score             *int
	MatchedIdentifier *string
	Cause             string
	ParsedJSON        string
	Error             *string
	RawText           string
	DurationMs        int64
	CreatedAt         time.Time
}

// FetchedMessage is a raw email pulled from a mailbox provider.
type FetchedMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}
