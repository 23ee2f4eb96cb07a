package compliance

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/AlreadyKyle/layer-playable-ads/internal/domain"
	"github.com/AlreadyKyle/layer-playable-ads/internal/infra"
)

// MaxPlayableBytes is the global size ceiling applied to every playable
// regardless of network: 5 MiB.
const MaxPlayableBytes = 5 * 1024 * 1024

// BridgeToken is the store-open invocation every playable must carry.
const BridgeToken = "openStoreUrl"

const assetSectionMarker = "var ASSETS ="

// Validator checks rendered playables against the fixed compliance rules.
// Every rule is evaluated independently; all failures are reported together.
type Validator struct {
	maxBytes int
	logger   *infra.Logger
}

// NewValidator constructs a validator. A non-positive ceiling takes the
// 5 MiB default.
func NewValidator(maxBytes int, logger *infra.Logger) *Validator {
	if maxBytes <= 0 {
		maxBytes = MaxPlayableBytes
	}
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &Validator{maxBytes: maxBytes, logger: logger}
}

// Validate annotates the artifact with every rule violation found. A nil
// network checks against the global ceiling only. Problems are data, never
// errors; the annotated artifact is always returned.
func (v *Validator) Validate(artifact domain.RenderedArtifact, network *NetworkSpec) domain.RenderedArtifact {
	var problems []string

	limit := v.maxBytes
	if network != nil && network.MaxSizeBytes() < limit {
		limit = network.MaxSizeBytes()
	}
	if artifact.SizeBytes > limit {
		problems = append(problems, fmt.Sprintf("size %s exceeds %s limit", artifact.SizeFormatted(), formatBytes(limit)))
	}

	requiresBridge := network == nil || network.RequiresBridge
	if requiresBridge && !strings.Contains(artifact.HTML, BridgeToken) {
		problems = append(problems, "missing "+BridgeToken+" store bridge")
	}

	if strings.Contains(artifact.HTML, "${") {
		problems = append(problems, "unsubstituted template placeholders found")
	}

	if section, ok := assetSection(artifact.HTML); ok {
		if strings.Contains(section, "http://") || strings.Contains(section, "https://") {
			problems = append(problems, "asset section references external URLs; all assets must be data URIs")
		}
	}

	artifact.Problems = problems
	artifact.Valid = len(problems) == 0

	if !artifact.Valid {
		v.logger.Warn().
			Str("mechanic", artifact.MechanicID).
			Strs("problems", problems).
			Msg("playable failed compliance")
	}
	return artifact
}

// assetSection extracts the embedded asset manifest, from its declaration to
// the end of the statement. Data URIs contain semicolons (";base64,"), so the
// statement boundary is the closing brace, not the first ";".
func assetSection(html string) (string, bool) {
	start := strings.Index(html, assetSectionMarker)
	if start < 0 {
		return "", false
	}
	rest := html[start:]
	if end := strings.Index(rest, "};"); end >= 0 {
		return rest[:end+1], true
	}
	if end := strings.IndexByte(rest, '\n'); end >= 0 {
		return rest[:end], true
	}
	return rest, true
}

func formatBytes(n int) string {
	mb := float64(n) / (1024 * 1024)
	if mb >= 1 {
		return fmt.Sprintf("%.2f MB", mb)
	}
	return fmt.Sprintf("%.1f KB", float64(n)/1024)
}
