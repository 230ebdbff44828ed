// Package perm is a pure convenience projection over the session's
// permission primitives. Codes follow the backend's "<module>_<action>"
// convention; everything here reduces to HasPermission /
// HasAnyPermission and adds no semantics of its own.
package perm

// Module names as used in permission codes.
const (
	ModuleShipment  = "ship"
	ModuleQuotation = "quotation"
	ModuleInvoice   = "invoice"
	ModuleCustomer  = "customer"
	ModulePayment   = "payment"
	ModuleUser      = "user"
)

// Actions as used in permission codes.
const (
	ActionView   = "view"
	ActionAdd    = "add"
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

// Checker is the slice of the session manager the evaluator reads.
type Checker interface {
	HasPermission(code string) bool
	HasAnyPermission(codes ...string) bool
}

// Code builds a permission code from module and action.
func Code(module, action string) string {
	return module + "_" + action
}

// CanView reports view access on module.
func CanView(c Checker, module string) bool {
	return c.HasPermission(Code(module, ActionView))
}

// CanAdd reports create access on module.
func CanAdd(c Checker, module string) bool {
	return c.HasPermission(Code(module, ActionAdd))
}

// CanEdit reports update access on module.
func CanEdit(c Checker, module string) bool {
	return c.HasPermission(Code(module, ActionEdit))
}

// CanDelete reports delete access on module.
func CanDelete(c Checker, module string) bool {
	return c.HasPermission(Code(module, ActionDelete))
}

// CanAccessAny reports whether any action on module is permitted —
// used for showing a module's navigation entry at all.
func CanAccessAny(c Checker, module string) bool {
	return c.HasAnyPermission(
		Code(module, ActionView),
		Code(module, ActionAdd),
		Code(module, ActionEdit),
		Code(module, ActionDelete),
	)
}
