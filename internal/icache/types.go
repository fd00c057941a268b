package icache

import "probevault/internal/probeitem"

// Item and CollectedObject are the cache's two external collaborators:
// it consumes them without caring about their concrete shape. Aliased
// here so the rest of this package can speak in its own vocabulary
// while staying interchangeable with internal/probeitem.
type Item = probeitem.Item
type CollectedObject = probeitem.CollectedObject
