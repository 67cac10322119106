package till

import "github.com/xraph/till/id"

// ID is the primary identifier type for all till entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
