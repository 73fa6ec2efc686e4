package convert

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/eapache/go-resiliency/retrier"
	"github.com/kylycht/curconv/model"
	"github.com/kylycht/curconv/service"
	"github.com/kylycht/curconv/service/directory"
	"github.com/rs/zerolog/log"
)

// ErrBothMethodsFailed means the preferred method and the fallback
// method both hit a network-level failure for the same conversion
var ErrBothMethodsFailed = errors.New("both conversion methods failed, check your internet connection")

// Service orchestrates conversions across the two methods. It is the
// only layer allowed to retry: a network-level failure of the active
// method is answered by exactly one attempt with the other method,
// after which the failure is fatal.
type Service struct {
	directory *directory.Directory
	xe        service.Converter
	oer       service.Converter
	preferred string   // default method when the request does not override it
	targets   []string // override target set for convert-to-all, empty = all known
	journal   *Journal // completed conversion log, nil when disabled
}

func New(dir *directory.Directory, xe, oer service.Converter, preferred string, targets []string, journal *Journal) *Service {
	return &Service{
		directory: dir,
		xe:        xe,
		oer:       oer,
		preferred: preferred,
		targets:   targets,
		journal:   journal,
	}
}

// networkClassifier lets the retrier act only on method-level
// network failures. An unsupported currency is not a failure of
// the method and switching methods cannot salvage bad input.
type networkClassifier struct{}

func (networkClassifier) Classify(err error) retrier.Action {
	if err == nil {
		return retrier.Succeed
	}

	var netErr *service.NetworkError
	if errors.As(err, &netErr) {
		return retrier.Retry
	}

	return retrier.Fail
}

// Convert resolves the request against the currency directory and
// converts the amount to one target, or to every known target when
// the request names none. Results are rounded to 2 decimal places
// here; the methods themselves never round.
func (s *Service) Convert(ctx context.Context, req model.Request, preferred string) (model.Result, error) {
	if err := s.directory.Load(ctx); err != nil {
		return model.Result{}, err
	}

	input, ok := s.directory.Resolve(req.From)
	if !ok {
		return model.Result{}, &service.UnsupportedError{Code: req.From}
	}

	targets := s.resolveTargets(req.To)
	primary, secondary := s.pair(preferred)

	// one extra attempt with the other method, never more
	retry := retrier.New(retrier.ConstantBackoff(1, 0), networkClassifier{})
	output := make(map[string]float64, len(targets))

	for _, target := range targets {
		if target == input {
			output[target] = round2(req.Amount)
			continue
		}

		attempt := 0
		var converted float64

		err := retry.RunCtx(ctx, func(ctx context.Context) error {
			method := primary
			if attempt > 0 {
				log.Error().Str("method", primary.Name()).Msg("conversion method failed, retrying with the other method")
				method = secondary
			}
			attempt++

			var convErr error
			converted, convErr = method.Convert(ctx, req.Amount, input, target)
			return convErr
		})

		if err != nil {
			var unsupported *service.UnsupportedError
			if errors.As(err, &unsupported) {
				if unsupported.Code == input {
					return model.Result{}, err
				}
				log.Debug().Str("code", target).Msg("currency not supported, skipping")
				continue
			}
			return model.Result{}, fmt.Errorf("%w: %v", ErrBothMethodsFailed, err)
		}

		if attempt > 1 {
			// the fallback method served this target,
			// keep it for the rest of the request
			primary, secondary = secondary, primary
		}

		output[target] = round2(converted)
	}

	result := model.Result{
		Input:  model.Input{Amount: req.Amount, Currency: input},
		Output: output,
	}

	s.journal.Record(result)
	return result, nil
}

// Currencies lists every currency the directory knows
func (s *Service) Currencies(ctx context.Context) ([]model.Currency, error) {
	if err := s.directory.Load(ctx); err != nil {
		return nil, err
	}

	return s.directory.List(), nil
}

// resolveTargets picks the output currency set: the resolved single
// target when one is given, otherwise the configured override set,
// otherwise every currency the directory knows. An output token that
// resolves to nothing downgrades to convert-to-all rather than
// failing: only the input currency is load-bearing.
func (s *Service) resolveTargets(to string) []string {
	if to != "" {
		if code, ok := s.directory.Resolve(to); ok {
			return []string{code}
		}
		log.Debug().Str("token", to).Msg("output currency is invalid, converting to all currencies")
	}

	if len(s.targets) > 0 {
		return s.targets
	}

	return s.directory.Codes()
}

func (s *Service) pair(preferred string) (service.Converter, service.Converter) {
	if preferred == "" {
		preferred = s.preferred
	}

	if strings.EqualFold(preferred, s.oer.Name()) {
		return s.oer, s.xe
	}

	return s.xe, s.oer
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
