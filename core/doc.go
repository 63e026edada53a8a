// Package core contains the session domain contracts, state container, and
// orchestration logic that mediates between an identity provider and outbound
// API calls. Adapter packages depend on core; core must not depend on
// provider-specific or transport-specific adapters.
package core
