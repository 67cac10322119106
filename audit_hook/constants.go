package audithook

// Action constants for audit events.
const (
	// Event actions
	ActionEventCreated = "event.created"

	// Product actions
	ActionProductAdded   = "product.added"
	ActionProductDeleted = "product.deleted"
	ActionStockAdjusted  = "stock.adjusted"

	// Sale actions
	ActionSaleRecorded  = "sale.recorded"
	ActionSaleCommitted = "sale.committed"
	ActionSaleRejected  = "sale.rejected"
	ActionSaleCancelled = "sale.cancelled"
)

// Resource constants for audit events.
const (
	ResourceEvent   = "event"
	ResourceProduct = "product"
	ResourceSale    = "sale"
)

// Category constants for audit events.
const (
	CategoryCatalog   = "catalog"
	CategoryInventory = "inventory"
	CategorySales     = "sales"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
