package classifier

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"github.com/hyperjump/shindan/pkg/utils"
)

// CoarseKey identifies one coarse evaluation: model plus the normalized
// assessment, label and definition. Changing any input invalidates the
// cached score.
func CoarseKey(model, assess, label, definition string) string {
	return digest(model, utils.Normalize(assess), utils.Normalize(label), utils.Normalize(definition))
}

// FineKey additionally covers the term lists shown to the model.
func FineKey(model, assess, label, definition string, dc, rf, rk []string) string {
	return digest(model,
		utils.Normalize(assess), utils.Normalize(label), utils.Normalize(definition),
		strings.Join(dc, "|"), strings.Join(rf, "|"), strings.Join(rk, "|"))
}

func digest(parts ...string) string {
	sum := sha1.Sum([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(sum[:])
}
