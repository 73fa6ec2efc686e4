package convert

import (
	"os"

	"github.com/google/uuid"
	"github.com/kylycht/curconv/model"
	"github.com/rs/zerolog"
)

// Journal appends one JSON line per completed conversion to a file.
// Best effort: a journal write never fails a conversion.
type Journal struct {
	logger zerolog.Logger
}

func NewJournal(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	return &Journal{
		logger: zerolog.New(f).With().Timestamp().Logger(),
	}, nil
}

// Record writes one conversion record. Safe on a nil Journal.
func (j *Journal) Record(result model.Result) {
	if j == nil {
		return
	}

	j.logger.Info().
		Str("id", uuid.NewString()).
		Interface("input", result.Input).
		Interface("output", result.Output).
		Msg("conversion completed")
}
