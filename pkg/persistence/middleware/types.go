// Package middleware wraps run stores to add behavior to every block they hold.
package middleware

import "github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/ports"

// Middleware allows wrapping a RunStore to add behavior.
type Middleware func(ports.RunStore) ports.RunStore

// Chain applies mws to store, the first one outermost.
func Chain(store ports.RunStore, mws ...Middleware) ports.RunStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
