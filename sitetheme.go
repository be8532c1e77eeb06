// Package sitetheme propagates a site configuration across every open context of
// a multi-page application suite.
//
// A Store holds the static configuration tree and answers dotted-path lookups
// for page UIs. An Engine owns one context's live style state: it applies a
// configuration's colors as custom style properties, persists the last applied
// configuration in a shared storage.Storage, and re-applies configuration when
// another context writes it or when in-page code publishes a ConfigChanged
// notification.
//
// Key features:
//   - Dotted-path lookup with default fallback (Store.Get)
//   - One mutation entry point for the live style state (Engine.ApplyConfiguration)
//   - Cross-context propagation over memory, file system or Redis storage
//   - A single dispatcher goroutine, so applications never interleave
package sitetheme

// StorageKey is the fixed key under which the last applied configuration is persisted.
const StorageKey = "currentSiteConfig"

// EventConfigChanged names the in-page notification carrying a ConfigChanged payload.
const EventConfigChanged = "configChanged"
