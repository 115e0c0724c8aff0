package domain

// User roles recognized by the shop service. Tokens are issued by the
// identity service; this service only reads the role claim.
const (
	RoleCustomer   = "customer"
	RoleShopkeeper = "shopkeeper"
	RoleAdmin      = "admin"
)
