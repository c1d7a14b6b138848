package meter

import (
	"fmt"

	"github.com/levenlabs/go-lflag"
)

// Configured sets up the meter data provider based on flags.
func Configured() Provider {
	provider := lflag.String("meter-provider", "datahub", "Meter data provider to use (available: datahub)")

	var p struct{ Provider }

	dh := configuredDataHub()

	lflag.Do(func() {
		switch *provider {
		case "datahub":
			if err := dh.Validate(); err != nil {
				panic(fmt.Sprintf("datahub validation failed: %v", err))
			}
			p.Provider = dh
		default:
			panic(fmt.Sprintf("unknown meter provider: %s", *provider))
		}
	})

	return &p
}
