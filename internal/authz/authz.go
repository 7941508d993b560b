package authz

// Roles stored on model.User and carried in the JWT "role" claim.
const (
	RoleAdmin            = "admin"
	RoleStoreManager     = "store_manager"
	RoleSiteManager      = "site_manager"
	RoleTransportManager = "transport_manager"
)

type Capability string

const (
	CapOrderCreate     Capability = "order.create"
	CapOrderRead       Capability = "order.read"
	CapOrderReview     Capability = "order.review"   // approve / reject
	CapTransportAssign Capability = "order.assign"   // assign transport manager
	CapDeliveryUpdate  Capability = "order.deliver"  // in-transit / delivered
	CapOrderComplete   Capability = "order.complete" // final review
	CapOrderCancel     Capability = "order.cancel"
	CapStockRead       Capability = "stock.read"
	CapStockAdjust     Capability = "stock.adjust"
	CapReturnCreate    Capability = "return.create"
	CapReturnRead      Capability = "return.read"
	CapAuditRead       Capability = "audit.read"
	CapDashboardRead   Capability = "dashboard.read"
)

var roleCapabilities = map[string][]Capability{
	RoleAdmin: {
		CapOrderCreate, CapOrderRead, CapOrderReview, CapTransportAssign,
		CapOrderComplete, CapOrderCancel, CapStockRead, CapStockAdjust,
		CapReturnCreate, CapReturnRead, CapAuditRead, CapDashboardRead,
	},
	RoleStoreManager: {
		CapOrderRead, CapOrderReview, CapTransportAssign, CapOrderComplete,
		CapOrderCancel, CapStockRead, CapStockAdjust, CapReturnCreate, CapReturnRead,
		CapDashboardRead,
	},
	RoleSiteManager: {
		CapOrderCreate, CapOrderRead, CapOrderCancel, CapStockRead,
		CapReturnCreate, CapReturnRead,
	},
	RoleTransportManager: {
		CapOrderRead, CapDeliveryUpdate,
	},
}

// RoleCapabilities returns the capability set of role. Unknown roles get an
// empty set.
func RoleCapabilities(role string) map[Capability]struct{} {
	caps := roleCapabilities[role]
	set := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

func Can(role string, capability Capability) bool {
	for _, c := range roleCapabilities[role] {
		if c == capability {
			return true
		}
	}
	return false
}

// RolesWith lists every role holding capability, used to pick notification
// recipients.
func RolesWith(capability Capability) []string {
	var roles []string
	for _, role := range []string{RoleAdmin, RoleStoreManager, RoleSiteManager, RoleTransportManager} {
		if Can(role, capability) {
			roles = append(roles, role)
		}
	}
	return roles
}

func ValidRole(role string) bool {
	_, ok := roleCapabilities[role]
	return ok
}
