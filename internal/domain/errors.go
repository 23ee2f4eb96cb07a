package domain

import "errors"

// Error kinds for the generation pipeline. Authentication and
// insufficient-credits abort a whole batch; timeout, generation-failure and
// post-processing errors are absorbed into a failed GeneratedAsset so the
// remaining assets still build.
var (
	ErrAuthentication      = errors.New("authentication failed")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrGenerationTimeout   = errors.New("generation timed out")
	ErrGenerationFailed    = errors.New("generation failed")
	ErrPostProcessing      = errors.New("post-processing failed")
	ErrUnknownMechanic     = errors.New("unknown mechanic")
)

// AbortsBatch reports whether err must stop an asset batch instead of being
// recorded on the individual asset.
func AbortsBatch(err error) bool {
	return errors.Is(err, ErrAuthentication) || errors.Is(err, ErrInsufficientCredits)
}
