package ingest

import "fmt"

type (
	TroubleType int

	// Trouble is a per-file diagnostic raised while processing a batch.
	// Troubles are scoped to the single file that raised them and never
	// abort the batch.
	Trouble struct {
		error
		tType TroubleType
		file  string
	}
)

const (
	UnsupportedFile TroubleType = iota
	ExtractionFailure
)

func newTrouble(file string, tType TroubleType, err error) Trouble {
	return Trouble{error: err, tType: tType, file: file}
}

func (t Trouble) Type() TroubleType { return t.tType }
func (t Trouble) File() string      { return t.file }
func (t Trouble) Unwrap() error     { return t.error }

func (t TroubleType) String() string {
	switch t {
	case UnsupportedFile:
		return fmt.Sprintf("UNSUPPORTED_FILE[%d]", t)
	case ExtractionFailure:
		return fmt.Sprintf("EXTRACTION_FAILURE[%d]", t)
	default:
		return fmt.Sprintf("UNKNOWN[%d]", t)
	}
}
