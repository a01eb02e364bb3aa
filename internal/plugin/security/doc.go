// Package security controls what a plugin's Lua code may do beyond
// registering handlers.
//
// A plugin lists capabilities in its manifest. Plugins without a list get
// Default(). Capabilities are hierarchical: granting "store" grants
// "store.read" and "store.write".
//
//	checker := security.NewChecker("orders", security.CapabilityStoreRead)
//	if err := checker.Check(security.CapabilityStoreWrite, "store_set"); err != nil {
//	    // errors.Is(err, security.ErrPermissionDenied)
//	}
package security
