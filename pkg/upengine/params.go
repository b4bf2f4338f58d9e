package upengine

import (
	"fmt"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

// decodeParams decodes a raw operation map into a typed params struct using
// the same koanf/mapstructure path pkg/config uses for its own decoding, so
// operation kinds don't need a second, bespoke decode mechanism.
func decodeParams(raw map[string]any, out any) error {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(raw, "."), nil); err != nil {
		return fmt.Errorf("upengine: loading operation params: %w", err)
	}
	if err := k.Unmarshal("", out); err != nil {
		return fmt.Errorf("upengine: decoding operation params: %w", err)
	}
	return nil
}
