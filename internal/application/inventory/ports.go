package inventory

// IDGenerator produces identities for products and stock-change events.
type IDGenerator interface {
	NewID() string
}
