package cairo

import (
	"fmt"

	"github.com/cofi-market/cofi-deploy/internal/domain/models"
)

// bytesPerWord is the capacity of a felt used as a string chunk
const bytesPerWord = 31

// EncodeShortString packs an ASCII string of at most 31 bytes into one felt
func EncodeShortString(s string) (models.Felt, error) {
	if len(s) > bytesPerWord {
		return models.Felt{}, fmt.Errorf("short string %q longer than %d bytes", s, bytesPerWord)
	}
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return models.Felt{}, fmt.Errorf("short string %q is not ASCII", s)
		}
	}
	return models.FeltFromBytes([]byte(s))
}

// EncodeByteArray serializes s as a core::byte_array::ByteArray:
// [len(data), data..., pending_word, pending_word_len]
func EncodeByteArray(s string) ([]models.Felt, error) {
	b := []byte(s)
	full := len(b) / bytesPerWord

	out := make([]models.Felt, 0, full+3)
	out = append(out, models.NewFelt(uint64(full)))
	for i := 0; i < full; i++ {
		w, err := models.FeltFromBytes(b[i*bytesPerWord : (i+1)*bytesPerWord])
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}

	rest := b[full*bytesPerWord:]
	pending, err := models.FeltFromBytes(rest)
	if err != nil {
		return nil, err
	}
	return append(out, pending, models.NewFelt(uint64(len(rest)))), nil
}
