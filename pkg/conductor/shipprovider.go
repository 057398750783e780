package conductor

import (
	"github.com/maestroship/maestro/internal/merrors"
	"github.com/maestroship/maestro/pkg/config"
)

// ShipProvider resolves the `ships` section of the environment
// description before Conductor builds entities.Ship values from it,
// mirroring maestro/shipproviders.py's factory-table shape: a
// `ship_provider` name selects one provider, and every provider produces
// the same raw shape (map[string]config.RawShip) regardless of where it
// sourced the data from.
type ShipProvider interface {
	Resolve(doc *config.Document) (map[string]config.RawShip, error)
}

// staticProvider returns doc.Ships unchanged — the only provider
// spec.md §6 actually describes, and the default when `ship_provider`
// is absent or set to "static".
type staticProvider struct{}

func (staticProvider) Resolve(doc *config.Document) (map[string]config.RawShip, error) {
	return doc.Ships, nil
}

var shipProviders = map[string]ShipProvider{
	"static": staticProvider{},
}

// RegisterShipProvider installs a named ShipProvider, letting a caller
// extend ship resolution (e.g. to a cloud inventory API) without
// modifying pkg/conductor.
func RegisterShipProvider(name string, provider ShipProvider) {
	shipProviders[name] = provider
}

func resolveShips(doc *config.Document) (map[string]config.RawShip, error) {
	provider, ok := shipProviders[doc.ShipProvider]
	if !ok {
		return nil, merrors.NewConfigurationError("unknown ship_provider %q", doc.ShipProvider)
	}
	return provider.Resolve(doc)
}
