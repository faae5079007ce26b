package molecule

import (
	"fmt"
	"math/bits"

	"github.com/turtacn/molscout/pkg/errors"
)

// Tanimoto returns |A∩B| / |A∪B| for two fingerprints of equal type and
// length. Two empty fingerprints score 0.
func Tanimoto(fp1, fp2 *Fingerprint) (float64, error) {
	if fp1 == nil || fp2 == nil {
		return 0, errors.New(errors.ErrCodeValidation, "tanimoto: nil fingerprint")
	}
	if fp1.Type != fp2.Type || fp1.Length != fp2.Length {
		return 0, errors.New(errors.ErrCodeValidation, "fingerprints must have same type and length").
			WithDetail(fmt.Sprintf("%s/%d vs %s/%d", fp1.Type, fp1.Length, fp2.Type, fp2.Length))
	}
	intersection, union := 0, 0
	for i := range fp1.Bits {
		intersection += popCount(fp1.Bits[i] & fp2.Bits[i])
		union += popCount(fp1.Bits[i] | fp2.Bits[i])
	}
	if union == 0 {
		return 0, nil
	}
	return float64(intersection) / float64(union), nil
}

func popCount(b byte) int { return bits.OnesCount8(b) }
